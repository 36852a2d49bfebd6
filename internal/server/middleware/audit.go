package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tenant-messaging-api/backend/internal/audit"
)

// AuditRejected records an audit event for every request that ends with a 4xx or 5xx status. Successful
// writes are audited by the write runner with their create/update action.
func AuditRejected(l audit.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		status := c.Writer.Status()
		if l == nil || status < 400 {
			return
		}
		ctx := c.Request.Context()
		orgID, _ := GetOrgID(ctx)
		userID, _ := GetUserID(ctx)
		resource := audit.ResourceForRoute(c.FullPath())
		l.LogEvent(ctx, orgID, userID, audit.ActionRejected, resource, `{"status":`+strconv.Itoa(status)+`}`)
	}
}
