package domain

import "time"

// Event is a telemetry event about one API request, org-scoped with an optional user.
type Event struct {
	OrgID     string
	UserID    string
	EventType string
	Source    string
	// Metadata is a JSON document describing the event.
	Metadata  []byte
	CreatedAt time.Time
}
