package service

import (
	"context"

	"tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/write"
)

// transitions are the only place label visible counts change. Each one moves a single message and adjusts the
// counts of exactly the labels whose visible membership it altered.
type transitions struct {
	env *write.Env
}

func (t transitions) label(ctx context.Context, m *domain.Msg, l *domain.Label) (bool, error) {
	added, err := t.env.Store.Msgs().AddLabel(ctx, m.ID, l.ID)
	if err != nil || !added {
		return false, err
	}
	if m.IsVisible() {
		return true, t.env.Store.Labels().AdjustVisibleCount(ctx, l.ID, 1)
	}
	return true, nil
}

func (t transitions) unlabel(ctx context.Context, m *domain.Msg, l *domain.Label) (bool, error) {
	removed, err := t.env.Store.Msgs().RemoveLabel(ctx, m.ID, l.ID)
	if err != nil || !removed {
		return false, err
	}
	if m.IsVisible() {
		return true, t.env.Store.Labels().AdjustVisibleCount(ctx, l.ID, -1)
	}
	return true, nil
}

func (t transitions) archive(ctx context.Context, m *domain.Msg) (bool, error) {
	if m.Visibility != domain.VisibilityVisible {
		return false, nil
	}
	return true, t.setVisibility(ctx, m, domain.VisibilityArchived, -1)
}

func (t transitions) restore(ctx context.Context, m *domain.Msg) (bool, error) {
	if m.Visibility != domain.VisibilityArchived {
		return false, nil
	}
	return true, t.setVisibility(ctx, m, domain.VisibilityVisible, 1)
}

func (t transitions) release(ctx context.Context, m *domain.Msg) (bool, error) {
	switch m.Visibility {
	case domain.VisibilityDeleted:
		return false, nil
	case domain.VisibilityVisible:
		return true, t.setVisibility(ctx, m, domain.VisibilityDeleted, -1)
	}
	return true, t.setVisibility(ctx, m, domain.VisibilityDeleted, 0)
}

func (t transitions) setVisibility(ctx context.Context, m *domain.Msg, v domain.Visibility, delta int64) error {
	if err := t.env.Store.Msgs().SetVisibility(ctx, m.ID, v); err != nil {
		return err
	}
	m.Visibility = v
	if delta == 0 {
		return nil
	}
	ids, err := t.env.Store.Msgs().LabelIDs(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := t.env.Store.Labels().AdjustVisibleCount(ctx, id, delta); err != nil {
			return err
		}
	}
	return nil
}
