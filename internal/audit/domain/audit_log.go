package domain

import "time"

// AuditLog is one row of the write audit trail: a committed create/update or a rejected request.
type AuditLog struct {
	ID       string
	OrgID    string
	UserID   string
	Action   string
	Resource string
	IP       string
	// TraceID links the row to the request trace; empty when the request was not sampled.
	TraceID   string
	Metadata  string
	CreatedAt time.Time
}
