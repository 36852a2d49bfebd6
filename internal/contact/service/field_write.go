package service

import (
	"context"
	"fmt"
	"strings"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

func fieldWriteSchema() *pipeline.Schema[*write.Env, *domain.ContactField] {
	return &pipeline.Schema[*write.Env, *domain.ContactField]{
		Resource: "contact_field",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "key", Type: pipeline.String, Validate: validateExistingKey},
			{Name: "label", Type: pipeline.String, Required: true, MaxLength: domain.MaxFieldLabelLength},
			{Name: "value_type", Type: pipeline.String, Required: true, Validate: validateValueType},
		},
		Rules:  []pipeline.Rule[*write.Env]{deriveKey},
		Mutate: mutateField,
	}
}

// validateExistingKey requires a given key to name an existing field: supplying a key means updating it.
func validateExistingKey(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	key := strings.TrimSpace(a.String(field))
	if key == "" {
		return nil
	}
	f, err := env.Store.Fields().GetByKey(ctx, env.OrgID(), key)
	if err != nil {
		return err
	}
	if f == nil {
		return pipeline.NotFound("No such contact field key")
	}
	a.Attach("field", f)
	return nil
}

func validateValueType(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	if !domain.IsValidValueType(a.String(field)) {
		return pipeline.Invalid("Invalid field value type")
	}
	return nil
}

func deriveKey(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	if _, ok := pipeline.Resolved[*domain.ContactField](a, "field"); ok {
		return nil
	}
	key := domain.MakeKey(a.String("label"))
	if !domain.IsValidKey(key) {
		return pipeline.Conflict("label", "Field key '%s' generated from this label is invalid or reserved", key)
	}
	a.Set("key", key)
	return nil
}

// mutateField gets or creates the field by key, applying label and value type.
func mutateField(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*domain.ContactField, error) {
	f, ok := pipeline.Resolved[*domain.ContactField](a, "field")
	if !ok {
		var err error
		if f, err = env.Store.Fields().GetByKey(ctx, env.OrgID(), a.String("key")); err != nil {
			return nil, fmt.Errorf("load field: %w", err)
		}
	}
	if f != nil {
		env.Updating()
		f.Label = strings.TrimSpace(a.String("label"))
		f.ValueType = domain.ValueType(a.String("value_type"))
		if err := env.Store.Fields().Update(ctx, f); err != nil {
			return nil, fmt.Errorf("update field: %w", err)
		}
		return f, nil
	}

	f = &domain.ContactField{
		OrgID:     env.OrgID(),
		Key:       a.String("key"),
		Label:     strings.TrimSpace(a.String("label")),
		ValueType: domain.ValueType(a.String("value_type")),
		IsActive:  true,
		CreatedBy: env.UserID,
		CreatedAt: env.Now,
	}
	if err := env.Store.Fields().Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create field: %w", err)
	}
	return f, nil
}
