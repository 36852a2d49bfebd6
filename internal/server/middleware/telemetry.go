package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/telemetry"
	"tenant-messaging-api/backend/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry emits an http_request event after each request. The emitter must not block (see
// telemetry.AsyncEmitter); failures are logged at debug level. A nil emitter disables it.
func Telemetry(emitter telemetry.EventEmitter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if emitter == nil {
			return
		}
		ctx := c.Request.Context()
		meta, _ := json.Marshal(httpRequestMetadata{
			Method:     c.Request.Method,
			Route:      c.FullPath(),
			Status:     c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
		})
		orgID, _ := GetOrgID(ctx)
		userID, _ := GetUserID(ctx)
		err := emitter.Emit(ctx, &domain.Event{
			OrgID:     orgID,
			UserID:    userID,
			EventType: "http_request",
			Source:    "http_middleware",
			Metadata:  meta,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil && log != nil {
			log.Debug("telemetry: event not emitted", zap.String("route", c.FullPath()), zap.Error(err))
		}
	}
}
