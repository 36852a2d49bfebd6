package domain

import (
	"strings"
	"time"
)

// Group is a user-managed collection of contacts.
type Group struct {
	ID        int64
	UUID      string
	OrgID     string
	Name      string
	IsActive  bool
	CreatedBy string
	CreatedAt time.Time
}

// IsValidGroupName reports whether name can be used for a group: not blank, at most MaxNameLength characters
// and not starting with + or -, which are reserved for query syntax.
func IsValidGroupName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len([]rune(trimmed)) > MaxNameLength {
		return false
	}
	return !strings.HasPrefix(trimmed, "+") && !strings.HasPrefix(trimmed, "-")
}
