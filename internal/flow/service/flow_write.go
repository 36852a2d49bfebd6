package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

func flowWriteSchema() *pipeline.Schema[*write.Env, *domain.Flow] {
	return &pipeline.Schema[*write.Env, *domain.Flow]{
		Resource: "flow",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "uuid", Type: pipeline.String, MaxLength: 36, Validate: validateFlowUUID},
			{Name: "name", Type: pipeline.String, Required: true, MaxLength: domain.MaxFlowNameLength},
			{Name: "flow_type", Type: pipeline.String, Required: true, Validate: validateFlowType},
			{Name: "definition", Type: pipeline.JSON, Validate: validateDefinition},
		},
		Mutate: mutateFlow,
	}
}

func validateFlowUUID(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	id := a.String(field)
	f, err := env.Store.Flows().GetByUUID(ctx, env.OrgID(), id)
	if err != nil {
		return err
	}
	if f == nil || f.IsSystem {
		return pipeline.NotFound("No such flow with UUID: %s", id)
	}
	a.Attach("flow", f)
	return nil
}

func validateFlowType(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	t := a.String(field)
	if !domain.IsValidFlowType(t) {
		return pipeline.Invalid("Invalid flow type: %s", t)
	}
	return nil
}

func validateDefinition(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	v, _ := a.Value(field)
	obj, ok := v.(map[string]any)
	if !ok {
		return pipeline.Invalid("Flow definition must be a JSON object.")
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return pipeline.Invalid("Flow definition must be a JSON object.")
	}
	a.Set(field, json.RawMessage(raw))
	return nil
}

// mutateFlow applies name and type, then replaces the definition when one was given. A replaced definition
// always bumps the version, even when it is unchanged.
func mutateFlow(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*domain.Flow, error) {
	f, existing := pipeline.Resolved[*domain.Flow](a, "flow")
	if existing {
		env.Updating()
		f.Name = strings.TrimSpace(a.String("name"))
		f.FlowType = domain.FlowType(a.String("flow_type"))
	} else {
		f = &domain.Flow{
			UUID:      uuid.NewString(),
			OrgID:     env.OrgID(),
			Name:      strings.TrimSpace(a.String("name")),
			FlowType:  domain.FlowType(a.String("flow_type")),
			Version:   1,
			IsActive:  true,
			CreatedBy: env.UserID,
			CreatedAt: env.Now,
		}
	}
	if def, ok := a.Value("definition"); ok {
		if raw, ok := def.(json.RawMessage); ok && len(raw) > 2 {
			f.Definition = raw
			if existing {
				f.Version++
			}
		}
	}
	f.ModifiedBy, f.ModifiedAt = env.UserID, env.Now

	if existing {
		if err := env.Store.Flows().Update(ctx, f); err != nil {
			return nil, fmt.Errorf("update flow: %w", err)
		}
		return f, nil
	}
	if err := env.Store.Flows().Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create flow: %w", err)
	}
	return f, nil
}
