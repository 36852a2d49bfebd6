package repository

import (
	"context"

	"tenant-messaging-api/backend/internal/flow/domain"
)

// FlowRepository defines persistence for flows. Lookups return only active flows of the org, archived or not.
type FlowRepository interface {
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Flow, error)
	GetByID(ctx context.Context, orgID string, id int64) (*domain.Flow, error)
	Create(ctx context.Context, f *domain.Flow) error
	Update(ctx context.Context, f *domain.Flow) error
}

// RunRepository defines persistence for flow runs.
type RunRepository interface {
	Create(ctx context.Context, r *domain.Run) error
	// ContactsWithRuns returns the subset of contactIDs that already have a run of flowID.
	ContactsWithRuns(ctx context.Context, flowID int64, contactIDs []int64) (map[int64]bool, error)
}
