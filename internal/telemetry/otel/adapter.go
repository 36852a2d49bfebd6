package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"tenant-messaging-api/backend/internal/telemetry"
	"tenant-messaging-api/backend/internal/telemetry/domain"
)

const instrumentationName = "msgapi.telemetry"

// LogEmitter is the subset of an OTel logger the event emitter needs.
type LogEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(instrumentationName))
}

// NewEventEmitterWithLogger returns an EventEmitter writing to l.
func NewEventEmitterWithLogger(l LogEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: l}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger LogEmitter
}

// Emit converts the event to an OTel log record named after the event type and emits it. Empty fields are not
// added as attributes. The severity follows the HTTP status in the metadata, if any.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetEventName(event.EventType)
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	sev := otellog.SeverityInfo
	if len(event.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(event.Metadata))
		sev = severityOf(event.Metadata)
	}
	rec.SetSeverity(sev)
	rec.SetSeverityText(sev.String())
	for _, kv := range []struct{ key, val string }{
		{"org_id", event.OrgID},
		{"user_id", event.UserID},
		{"event_type", event.EventType},
		{"source", event.Source},
	} {
		if kv.val != "" {
			rec.AddAttributes(otellog.String(kv.key, kv.val))
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}

// severityOf maps a "status" field in the event metadata to a log severity: 5xx is an error, 4xx a warning.
func severityOf(metadata []byte) otellog.Severity {
	var m struct {
		Status int `json:"status"`
	}
	if json.Unmarshal(metadata, &m) != nil {
		return otellog.SeverityInfo
	}
	switch {
	case m.Status >= 500:
		return otellog.SeverityError
	case m.Status >= 400:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}
