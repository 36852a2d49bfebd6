package domain

import (
	"errors"
	"time"
)

// MaxNameLength is the longest contact or group name accepted.
const MaxNameLength = 64

// Contact is an identity record within an org. Contacts are never deleted, only deactivated.
type Contact struct {
	ID         int64
	UUID       string
	OrgID      string
	Name       string
	Language   string
	IsActive   bool
	CreatedBy  string
	ModifiedBy string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Validate validates the contact for persistence. Returns an error describing the first validation failure.
func (c *Contact) Validate() error {
	if c.OrgID == "" {
		return errors.New("org_id is required")
	}
	if c.UUID == "" {
		return errors.New("uuid is required")
	}
	if len([]rune(c.Name)) > MaxNameLength {
		return errors.New("name is too long")
	}
	return nil
}

// Value is the stored value of one custom field for one contact. Text always holds the raw value; the typed
// columns are set when the raw value parses as the field's type.
type Value struct {
	ContactID int64
	FieldID   int64
	Text      string
	Number    *float64
	Datetime  *time.Time
}
