// Package server builds the HTTP JSON API and the gRPC health endpoint.
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/audit"
	"tenant-messaging-api/backend/internal/server/middleware"
	"tenant-messaging-api/backend/internal/telemetry"
)

// APIPrefix is the path every write route is mounted under.
const APIPrefix = "/api/v1"

// Registrar adds a domain's routes to the authenticated API group.
type Registrar interface {
	Register(rg *gin.RouterGroup)
}

// RouterConfig holds the dependencies of the HTTP router. Audit, Emitter and Health may be nil.
type RouterConfig struct {
	ServiceName string
	Tokens      middleware.TokenVerifier
	Audit       audit.AuditLogger
	Emitter     telemetry.EventEmitter
	Health      gin.HandlerFunc
	Log         *zap.Logger
	Handlers    []Registrar
}

// NewRouter returns the gin engine: recovery, tracing and access logging on every route, bearer auth on the
// API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		log.Error("panic serving request", zap.String("path", c.Request.URL.Path), zap.Any("panic", rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
	}))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middleware.AccessLog(log))

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health)
	}

	api := r.Group(APIPrefix)
	api.Use(middleware.Telemetry(cfg.Emitter, log))
	if cfg.Audit != nil {
		api.Use(middleware.AuditRejected(cfg.Audit))
	}
	api.Use(middleware.Auth(cfg.Tokens))
	for _, h := range cfg.Handlers {
		h.Register(api)
	}
	return r
}

// NewHTTPServer returns an http.Server for handler with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
