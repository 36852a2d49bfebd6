package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"tenant-messaging-api/backend/internal/audit"
	auditrepo "tenant-messaging-api/backend/internal/audit/repository"
	campaignhandler "tenant-messaging-api/backend/internal/campaign/handler"
	campaignsvc "tenant-messaging-api/backend/internal/campaign/service"
	channelhandler "tenant-messaging-api/backend/internal/channel/handler"
	channelsvc "tenant-messaging-api/backend/internal/channel/service"
	channelsync "tenant-messaging-api/backend/internal/channel/sync"
	"tenant-messaging-api/backend/internal/config"
	contacthandler "tenant-messaging-api/backend/internal/contact/handler"
	contactsvc "tenant-messaging-api/backend/internal/contact/service"
	"tenant-messaging-api/backend/internal/db"
	"tenant-messaging-api/backend/internal/dispatch"
	"tenant-messaging-api/backend/internal/dispatch/producer"
	flowhandler "tenant-messaging-api/backend/internal/flow/handler"
	flowsvc "tenant-messaging-api/backend/internal/flow/service"
	healthhandler "tenant-messaging-api/backend/internal/health/handler"
	"tenant-messaging-api/backend/internal/logger"
	msghandler "tenant-messaging-api/backend/internal/msg/handler"
	msgsvc "tenant-messaging-api/backend/internal/msg/service"
	"tenant-messaging-api/backend/internal/policy/engine"
	policyrepo "tenant-messaging-api/backend/internal/policy/repository"
	"tenant-messaging-api/backend/internal/security"
	"tenant-messaging-api/backend/internal/server"
	"tenant-messaging-api/backend/internal/server/middleware"
	"tenant-messaging-api/backend/internal/store"
	"tenant-messaging-api/backend/internal/telemetry"
	telemetryotel "tenant-messaging-api/backend/internal/telemetry/otel"
	"tenant-messaging-api/backend/internal/write"
)

const healthInterval = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel, cfg.OTelServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.DatabaseURL == "" {
		zlog.Fatal("DATABASE_URL is not set")
	}
	if cfg.JWTPublicKey == "" {
		zlog.Fatal("JWT_PUBLIC_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
		Environment: cfg.Env,
		SampleRatio: cfg.OTelSampleRatio,
	}, zlog)
	if err != nil {
		zlog.Fatal("otel providers", zap.Error(err))
	}
	providers.SetGlobal()

	conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
	if err != nil {
		zlog.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		zlog.Fatal("jwt public key", zap.Error(err))
	}
	tokens, err := security.NewTokenVerifier(pub, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		zlog.Fatal("token verifier", zap.Error(err))
	}

	policy := engine.NewOPAEvaluator(policyrepo.NewPostgresRepository(conn), zlog)
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.ClientIP, zlog)
	w := write.NewWriter(store.NewPostgres(conn),
		write.WithPolicy(policy),
		write.WithAudit(auditLog),
		write.WithLogger(zlog),
	)

	var dispatcher dispatch.Dispatcher
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.DispatchKafkaTopic)
	if kafkaProducer != nil {
		dispatcher = kafkaProducer
		zlog.Info("dispatch enabled", zap.Strings("brokers", cfg.KafkaBrokersList()), zap.String("topic", cfg.DispatchKafkaTopic))
	}

	var notifier channelsync.Notifier
	if cfg.RedisURL != "" {
		rn, err := channelsync.NewRedisNotifier(ctx, cfg.RedisURL, cfg.SyncChannelPrefix, zlog)
		if err != nil {
			zlog.Fatal("redis", zap.Error(err))
		}
		defer rn.Close()
		notifier = rn
	}

	emitter := telemetry.NewAsyncEmitter(telemetryotel.NewEventEmitter(providers.LoggerProvider), zlog, telemetry.DefaultQueueSize)

	checker := healthhandler.NewChecker(conn, policy, zlog)
	router := server.NewRouter(server.RouterConfig{
		ServiceName: cfg.OTelServiceName,
		Tokens:      tokens,
		Audit:       auditLog,
		Emitter:     emitter,
		Health:      checker.ServeHTTP,
		Log:         zlog,
		Handlers: []server.Registrar{
			contacthandler.NewHandler(contactsvc.NewService(w), zlog),
			campaignhandler.NewHandler(campaignsvc.NewService(w), zlog),
			flowhandler.NewHandler(flowsvc.NewService(w, dispatcher), zlog),
			msghandler.NewHandler(msgsvc.NewService(w, dispatcher), zlog),
			channelhandler.NewHandler(channelsvc.NewService(w, notifier), zlog),
		},
	})
	httpSrv := server.NewHTTPServer(cfg.HTTPAddr, router)
	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http serve", zap.Error(err))
		}
	}()

	hs := health.NewServer()
	go checker.Watch(ctx, hs, healthInterval)
	grpcSrv := server.NewGRPCServer(hs)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			zlog.Fatal("listen", zap.Error(err))
		}
		go func() {
			zlog.Info("gRPC health server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				zlog.Fatal("grpc serve", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	zlog.Info("shutting down")

	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	// In-flight dispatches and sync notifications run detached from requests.
	time.Sleep(dispatch.ShutdownDrainDuration)
	if err := emitter.Close(shutdownCtx); err != nil {
		zlog.Warn("telemetry drain", zap.Error(err))
	}
	if n := emitter.Dropped(); n > 0 {
		zlog.Warn("telemetry events dropped", zap.Int64("count", n))
	}
	if err := kafkaProducer.Close(); err != nil {
		zlog.Warn("kafka producer close", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("otel shutdown", zap.Error(err))
	}
	zlog.Info("server stopped")
}
