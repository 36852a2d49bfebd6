package repository

import (
	"context"

	"tenant-messaging-api/backend/internal/campaign/domain"
)

// CampaignRepository defines persistence for campaigns. GetByUUID and GetByID return only active, unarchived
// campaigns of the org.
type CampaignRepository interface {
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Campaign, error)
	GetByID(ctx context.Context, orgID string, id int64) (*domain.Campaign, error)
	// GetByIDWithArchived also returns archived campaigns. Events of an archived campaign stay editable.
	GetByIDWithArchived(ctx context.Context, orgID string, id int64) (*domain.Campaign, error)
	Create(ctx context.Context, c *domain.Campaign) error
	Update(ctx context.Context, c *domain.Campaign) error
}

// EventRepository defines persistence for campaign events. Lookups return only active events of the org.
type EventRepository interface {
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Event, error)
	GetByID(ctx context.Context, orgID string, id int64) (*domain.Event, error)
	Create(ctx context.Context, e *domain.Event) error
	Update(ctx context.Context, e *domain.Event) error
}
