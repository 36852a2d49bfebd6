package repository

import (
	"context"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/urn"
)

// ContactRepository defines persistence for contacts, their field values and group membership.
// Every lookup is scoped to an org and returns only active contacts.
type ContactRepository interface {
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Contact, error)
	GetByID(ctx context.Context, orgID string, id int64) (*domain.Contact, error)
	ListByGroups(ctx context.Context, orgID string, groupIDs []int64) ([]*domain.Contact, error)
	Create(ctx context.Context, c *domain.Contact) error
	Update(ctx context.Context, c *domain.Contact) error
	SetValue(ctx context.Context, v *domain.Value) error
	ClearValue(ctx context.Context, contactID, fieldID int64) error
	GroupIDs(ctx context.Context, contactID int64) ([]int64, error)
	AddToGroup(ctx context.Context, contactID, groupID int64) error
	RemoveFromGroup(ctx context.Context, contactID, groupID int64) error
}

// URNRepository defines persistence for contact addresses.
type URNRepository interface {
	// GetOrCreate returns the row for u in orgID, inserting an unowned row if none exists. Concurrent callers
	// for the same identity converge on one row, and the row stays locked until the surrounding transaction ends.
	GetOrCreate(ctx context.Context, orgID string, u urn.URN) (*domain.ContactURN, error)
	GetByIdentity(ctx context.Context, orgID, identity string) (*domain.ContactURN, error)
	ListByContact(ctx context.Context, contactID int64) ([]*domain.ContactURN, error)
	Assign(ctx context.Context, urnID, contactID int64, priority int) error
	Detach(ctx context.Context, urnID int64) error
}

// GroupRepository defines persistence for contact groups.
type GroupRepository interface {
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Group, error)
	GetByID(ctx context.Context, orgID string, id int64) (*domain.Group, error)
	// GetByName matches name exactly.
	GetByName(ctx context.Context, orgID, name string) (*domain.Group, error)
	Create(ctx context.Context, g *domain.Group) error
}

// FieldRepository defines persistence for custom field definitions.
type FieldRepository interface {
	// GetByKey matches key case-insensitively.
	GetByKey(ctx context.Context, orgID, key string) (*domain.ContactField, error)
	// GetByLabel matches label case-insensitively.
	GetByLabel(ctx context.Context, orgID, label string) (*domain.ContactField, error)
	Create(ctx context.Context, f *domain.ContactField) error
	Update(ctx context.Context, f *domain.ContactField) error
}
