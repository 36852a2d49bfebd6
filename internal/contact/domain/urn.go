package domain

import "tenant-messaging-api/backend/internal/urn"

// ContactURN is an address row. Within an org the identity (scheme:path) is unique, and the row belongs to at
// most one contact. Rows are created on first use and reused after that.
type ContactURN struct {
	ID        int64
	OrgID     string
	ContactID *int64
	Scheme    string
	Path      string
	Priority  int
}

// DefaultPriority is the priority of the first URN of a contact. Later URNs get lower priorities.
const DefaultPriority = 50

// Identity returns the canonical scheme:path string.
func (u *ContactURN) Identity() string {
	return u.URN().String()
}

// URN returns the scheme/path pair.
func (u *ContactURN) URN() urn.URN {
	return urn.URN{Scheme: u.Scheme, Path: u.Path}
}

// IsOwnedBy reports whether the row is attached to contactID.
func (u *ContactURN) IsOwnedBy(contactID int64) bool {
	return u.ContactID != nil && *u.ContactID == contactID
}
