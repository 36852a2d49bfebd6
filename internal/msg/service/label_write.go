package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

func labelWriteSchema() *pipeline.Schema[*write.Env, *domain.Label] {
	return &pipeline.Schema[*write.Env, *domain.Label]{
		Resource: "label",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "uuid", Type: pipeline.String, MaxLength: 36, Validate: validateLabelUUID},
			{Name: "name", Type: pipeline.String, Required: true, MaxLength: domain.MaxLabelNameLength, Validate: validateLabelName},
		},
		Rules:  []pipeline.Rule[*write.Env]{uniqueLabelName},
		Mutate: mutateLabel,
	}
}

func validateLabelUUID(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	id := a.String(field)
	l, err := env.Store.Labels().GetByUUID(ctx, env.OrgID(), id)
	if err != nil {
		return err
	}
	if l == nil {
		return pipeline.NotFound("No such message label with UUID: %s", id)
	}
	a.Attach("label", l)
	return nil
}

func validateLabelName(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	name := a.String(field)
	if !domain.IsValidLabelName(name) {
		return pipeline.Invalid("Label name must not be blank or begin with + or -")
	}
	a.Set(field, strings.TrimSpace(name))
	return nil
}

// uniqueLabelName rejects a name already used by another label of the org.
func uniqueLabelName(ctx context.Context, env *write.Env, a *pipeline.Attrs) error {
	other, err := env.Store.Labels().GetByName(ctx, env.OrgID(), a.String("name"))
	if err != nil {
		return err
	}
	if other != nil && other.UUID != a.String("uuid") {
		return pipeline.Conflict("name", "Label name must be unique")
	}
	return nil
}

func mutateLabel(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*domain.Label, error) {
	if l, ok := pipeline.Resolved[*domain.Label](a, "label"); ok {
		env.Updating()
		l.Name = a.String("name")
		if err := env.Store.Labels().Update(ctx, l); err != nil {
			return nil, fmt.Errorf("update label: %w", err)
		}
		return l, nil
	}
	return getOrCreateLabel(ctx, env, a.String("name"))
}

func getOrCreateLabel(ctx context.Context, env *write.Env, name string) (*domain.Label, error) {
	l, err := env.Store.Labels().GetByName(ctx, env.OrgID(), name)
	if err != nil || l != nil {
		return l, err
	}
	l = &domain.Label{
		UUID:      uuid.NewString(),
		OrgID:     env.OrgID(),
		Name:      name,
		IsActive:  true,
		CreatedBy: env.UserID,
		CreatedAt: env.Now,
	}
	if err := env.Store.Labels().Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create label: %w", err)
	}
	return l, nil
}
