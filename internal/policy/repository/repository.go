package repository

import (
	"context"

	"tenant-messaging-api/backend/internal/policy/domain"
)

// Repository defines persistence for policies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error)
	// GetEnabledPoliciesByOrg returns the enabled policies of orgID, oldest first.
	GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
	Update(ctx context.Context, p *domain.Policy) error
}
