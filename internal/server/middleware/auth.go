package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "bearer "

// TokenVerifier validates a bearer token and returns the user and org it was issued for.
type TokenVerifier interface {
	Verify(token string) (userID, orgID string, err error)
}

// Auth rejects requests without a valid bearer token with 401 and places the token's identity and the client
// IP in the request context.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithClientIP(c.Request.Context(), c.ClientIP())
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Request = c.Request.WithContext(ctx)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		userID, orgID, err := tokens.Verify(token)
		if err != nil {
			c.Request = c.Request.WithContext(ctx)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(ctx, userID, orgID))
		c.Next()
	}
}

// extractBearer returns the token of an "Authorization: Bearer <token>" header, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
