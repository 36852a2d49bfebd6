package repository

import (
	"context"

	"tenant-messaging-api/backend/internal/channel/domain"
)

// Repository defines persistence for channels.
type Repository interface {
	// GetByID and GetByUUID return only active channels of orgID.
	GetByID(ctx context.Context, orgID string, id int64) (*domain.Channel, error)
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Channel, error)
	// GetByClaimCode returns the active, unclaimed channel registered with code.
	GetByClaimCode(ctx context.Context, code string) (*domain.Channel, error)
	// GetSendChannel returns the most recently seen active channel of orgID that can send on scheme.
	GetSendChannel(ctx context.Context, orgID, scheme string) (*domain.Channel, error)
	// MostRecent returns the most recently seen active channel of orgID.
	MostRecent(ctx context.Context, orgID string) (*domain.Channel, error)
	Claim(ctx context.Context, c *domain.Channel) error
}
