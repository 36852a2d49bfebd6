package repository

import (
	"context"

	"tenant-messaging-api/backend/internal/msg/domain"
)

// BroadcastRepository defines persistence for broadcasts and their recipients.
type BroadcastRepository interface {
	Create(ctx context.Context, b *domain.Broadcast) error
}

// MsgRepository defines persistence for messages and their labels.
type MsgRepository interface {
	Create(ctx context.Context, m *domain.Msg) error
	// ListForAction returns the messages of orgID with the given direction among ids, ordered by id.
	ListForAction(ctx context.Context, orgID string, direction domain.Direction, ids []int64) ([]*domain.Msg, error)
	SetVisibility(ctx context.Context, msgID int64, v domain.Visibility) error
	LabelIDs(ctx context.Context, msgID int64) ([]int64, error)
	// AddLabel labels the message and reports whether the association is new.
	AddLabel(ctx context.Context, msgID, labelID int64) (bool, error)
	// RemoveLabel unlabels the message and reports whether an association was removed.
	RemoveLabel(ctx context.Context, msgID, labelID int64) (bool, error)
}

// LabelRepository defines persistence for labels. Lookups return only active labels of the org.
type LabelRepository interface {
	GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Label, error)
	// GetByName matches name case-insensitively.
	GetByName(ctx context.Context, orgID, name string) (*domain.Label, error)
	Create(ctx context.Context, l *domain.Label) error
	Update(ctx context.Context, l *domain.Label) error
	// AdjustVisibleCount adds delta to the label's visible count.
	AdjustVisibleCount(ctx context.Context, labelID int64, delta int64) error
}
