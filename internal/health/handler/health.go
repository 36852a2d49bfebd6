// Package handler reports readiness over the standard gRPC health protocol and over HTTP.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks database connectivity, e.g. *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the policy engine, e.g. the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker checks the dependencies a write needs. Either dependency may be nil and is then skipped.
type Checker struct {
	db     Pinger
	policy PolicyChecker
	log    *zap.Logger
}

// NewChecker returns a readiness checker.
func NewChecker(db Pinger, policy PolicyChecker, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{db: db, policy: policy, log: log}
}

// Check returns the first failing dependency.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("policy engine: %w", err)
		}
	}
	return nil
}

// Update runs one check and sets the overall status of hs.
func (c *Checker) Update(ctx context.Context, hs *health.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		c.log.Warn("not ready", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
}

// Watch updates hs every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	c.Update(ctx, hs)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Update(ctx, hs)
		}
	}
}

// ServeHTTP answers GET /healthz: 200 when ready, 503 otherwise.
func (c *Checker) ServeHTTP(gc *gin.Context) {
	if err := c.Check(gc.Request.Context()); err != nil {
		gc.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_SERVING"})
		return
	}
	gc.JSON(http.StatusOK, gin.H{"status": "SERVING"})
}
