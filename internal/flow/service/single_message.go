package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/write"
)

// SingleMessageFlows owns the hidden flows that back campaign message events. A hidden flow is never shared:
// it is created for one event, updated in place while the event stays a message event and detached when the
// event switches to a user flow.
type SingleMessageFlows struct{}

// Create stores a new hidden flow sending text.
func (SingleMessageFlows) Create(ctx context.Context, env *write.Env, text string) (*domain.Flow, error) {
	f := &domain.Flow{
		UUID:       uuid.NewString(),
		OrgID:      env.OrgID(),
		Name:       "Single Message",
		FlowType:   domain.FlowTypeMessage,
		Definition: domain.SingleMessageDefinition(uuid.NewString(), text),
		Version:    1,
		IsSystem:   true,
		IsActive:   true,
		CreatedBy:  env.UserID,
		ModifiedBy: env.UserID,
		CreatedAt:  env.Now,
		ModifiedAt: env.Now,
	}
	if err := env.Store.Flows().Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create single message flow: %w", err)
	}
	return f, nil
}

// Update replaces the text a hidden flow sends.
func (SingleMessageFlows) Update(ctx context.Context, env *write.Env, f *domain.Flow, text string) error {
	if !f.IsSystem {
		return fmt.Errorf("flow %s is not a single message flow", f.UUID)
	}
	f.Definition = domain.SingleMessageDefinition(uuid.NewString(), text)
	f.Version++
	f.ModifiedBy, f.ModifiedAt = env.UserID, env.Now
	if err := env.Store.Flows().Update(ctx, f); err != nil {
		return fmt.Errorf("update single message flow: %w", err)
	}
	return nil
}

// Detach deactivates a hidden flow no longer referenced by its event. User flows are left alone.
func (SingleMessageFlows) Detach(ctx context.Context, env *write.Env, f *domain.Flow) error {
	if f == nil || !f.IsSystem {
		return nil
	}
	f.IsActive = false
	f.ModifiedBy, f.ModifiedAt = env.UserID, env.Now
	if err := env.Store.Flows().Update(ctx, f); err != nil {
		return fmt.Errorf("detach single message flow: %w", err)
	}
	return nil
}

// Rename sets the display name of a hidden flow. User flows are never renamed.
func (SingleMessageFlows) Rename(ctx context.Context, env *write.Env, f *domain.Flow, name string) error {
	if !f.IsSystem || f.Name == name {
		return nil
	}
	if r := []rune(name); len(r) > domain.MaxFlowNameLength {
		name = string(r[:domain.MaxFlowNameLength])
	}
	f.Name = name
	f.ModifiedBy, f.ModifiedAt = env.UserID, env.Now
	if err := env.Store.Flows().Update(ctx, f); err != nil {
		return fmt.Errorf("rename single message flow: %w", err)
	}
	return nil
}
