// Package middleware holds the gin middleware of the JSON API and the request identity it places in the
// request context.
package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	orgIDKey  = contextKey{"org_id"}
	ipKey     = contextKey{"client_ip"}
)

// WithIdentity returns a context with user_id and org_id set.
// Writes read the tenant through GetOrgID; nothing looks up the current org globally.
func WithIdentity(ctx context.Context, userID, orgID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, orgIDKey, orgID)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetOrgID returns the org_id from context and true if set; otherwise "", false.
func GetOrgID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(orgIDKey).(string)
	return v, ok && v != ""
}

// WithClientIP returns a context carrying the caller's IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey, ip)
}

// ClientIP returns the caller's IP recorded by the auth middleware, or "unknown".
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(ipKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
