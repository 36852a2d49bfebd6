// Package otel provides OpenTelemetry TracerProvider, MeterProvider, and LoggerProvider
// configured with OTLP exporters.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.uber.org/zap"
)

// Config selects the OTLP collector.
type Config struct {
	// Endpoint may be a URL with optional path (e.g. http://localhost:4317) or host:port. Empty selects
	// no-op providers.
	Endpoint    string
	ServiceName string
	// Insecure forces plaintext even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	Insecure       bool
	MetricInterval time.Duration
	// Environment is recorded as deployment.environment.name when set.
	Environment string
	// SampleRatio is the fraction of root traces sampled; values outside (0, 1] sample everything.
	SampleRatio float64
}

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// Target returns the gRPC dial target (host:port) of endpoint and whether to dial without TLS.
func Target(endpoint string, insecureOverride bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, insecureOverride || u.Scheme != "https", nil
}

// NewProviders creates providers that export via OTLP to cfg.Endpoint. Shutdown errors are logged to log.
func NewProviders(ctx context.Context, cfg Config, log *zap.Logger) (*Providers, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	target, insecure, err := Target(cfg.Endpoint, cfg.Insecure)
	if err != nil {
		return nil, err
	}
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	exp, err := newExporters(ctx, target, insecure)
	if err != nil {
		return nil, err
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.trace),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	)
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp.metric, metric.WithInterval(interval))),
	)
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log)), sdklog.WithResource(res))

	// Loggers flush first so records emitted during shutdown still carry live spans.
	order := []struct {
		name string
		fn   func(context.Context) error
	}{{"logs", lp.Shutdown}, {"metrics", mp.Shutdown}, {"traces", tp.Shutdown}}
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, s := range order {
			if err := s.fn(ctx); err != nil {
				log.Warn("telemetry: shutdown", zap.String("provider", s.name), zap.Error(err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return &Providers{TracerProvider: tp, MeterProvider: mp, LoggerProvider: lp, Shutdown: shutdown}, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment.name", cfg.Environment))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

type exporters struct {
	trace  sdktrace.SpanExporter
	metric metric.Exporter
	log    sdklog.Exporter
}

// newExporters dials the three OTLP gRPC exporters. On failure the ones already created are shut down.
func newExporters(ctx context.Context, target string, insecure bool) (*exporters, error) {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	var (
		out exporters
		err error
	)
	if out.trace, err = otlptracegrpc.New(ctx, traceOpts...); err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	if out.metric, err = otlpmetricgrpc.New(ctx, metricOpts...); err != nil {
		_ = out.trace.Shutdown(ctx)
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	if out.log, err = otlploggrpc.New(ctx, logOpts...); err != nil {
		_ = out.trace.Shutdown(ctx)
		_ = out.metric.Shutdown(ctx)
		return nil, fmt.Errorf("log exporter: %w", err)
	}
	return &out, nil
}

func sampleRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return 1
	}
	return r
}

// SetGlobal sets the global TracerProvider and MeterProvider so instrumentation (otelgin, otelgrpc) uses them.
// It does not set a global LoggerProvider; pass LoggerProvider to the emitters that need it.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}
