package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tenant-messaging-api/backend/internal/campaign/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	contactservice "tenant-messaging-api/backend/internal/contact/service"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// WrittenCampaign is a campaign with the group it targets.
type WrittenCampaign struct {
	Campaign *domain.Campaign
	Group    *contactdomain.Group
}

func campaignWriteSchema() *pipeline.Schema[*write.Env, *WrittenCampaign] {
	return &pipeline.Schema[*write.Env, *WrittenCampaign]{
		Resource: "campaign",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "uuid", Type: pipeline.String, MaxLength: 36, Validate: validateCampaignRef},
			{Name: "campaign", Type: pipeline.Integer, Validate: validateCampaignRef},
			{Name: "name", Type: pipeline.String, Required: true, MaxLength: domain.MaxCampaignNameLength},
			{Name: "group_uuid", Type: pipeline.String, MaxLength: 36, Validate: validateCampaignGroup},
			{Name: "group", Type: pipeline.String, MaxLength: contactdomain.MaxNameLength, Validate: validateCampaignGroupName},
		},
		Rules: []pipeline.Rule[*write.Env]{
			pipeline.AtLeastOne[*write.Env]("Must specify either group name or group_uuid", "group", "group_uuid"),
			pipeline.Exclusive[*write.Env](pipeline.Alias{Canonical: "group_uuid", Legacy: "group"}),
			campaignIdentity,
		},
		Mutate: mutateCampaign,
	}
}

// validateCampaignRef resolves the campaign being updated from uuid or its legacy id.
func validateCampaignRef(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	c, err := env.Resolve.Campaign(ctx, reference(a, field))
	if err != nil {
		return err
	}
	a.Attach("campaign", c)
	return nil
}

func validateCampaignGroup(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	id := a.String(field)
	g, err := env.Store.Groups().GetByUUID(ctx, env.OrgID(), id)
	if err != nil {
		return err
	}
	if g == nil {
		return pipeline.NotFound("No contact group with UUID %s", id)
	}
	a.Attach("group", g)
	return nil
}

func validateCampaignGroupName(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	if name := a.String(field); !contactdomain.IsValidGroupName(name) {
		return pipeline.Invalid("Invalid group name: '%s'", name)
	}
	return nil
}

func campaignIdentity(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	if a.Has("uuid") && a.Has("campaign") {
		return pipeline.Conflict("", "Can't specify both campaign and uuid")
	}
	return nil
}

func mutateCampaign(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*WrittenCampaign, error) {
	group, ok := pipeline.Resolved[*contactdomain.Group](a, "group")
	if !ok {
		var err error
		if group, err = contactservice.GetOrCreateGroup(ctx, env, a.String("group")); err != nil {
			return nil, err
		}
	}

	name := strings.TrimSpace(a.String("name"))
	c, existing := pipeline.Resolved[*domain.Campaign](a, "campaign")
	if existing {
		env.Updating()
		c.Name, c.GroupID = name, group.ID
		c.ModifiedBy, c.ModifiedAt = env.UserID, env.Now
		if err := env.Store.Campaigns().Update(ctx, c); err != nil {
			return nil, fmt.Errorf("update campaign: %w", err)
		}
		return &WrittenCampaign{Campaign: c, Group: group}, nil
	}

	c = &domain.Campaign{
		UUID:       uuid.NewString(),
		OrgID:      env.OrgID(),
		Name:       name,
		GroupID:    group.ID,
		IsActive:   true,
		CreatedBy:  env.UserID,
		ModifiedBy: env.UserID,
		CreatedAt:  env.Now,
		ModifiedAt: env.Now,
	}
	if err := env.Store.Campaigns().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return &WrittenCampaign{Campaign: c, Group: group}, nil
}

// reference reads field as a legacy id when it holds an Integer, otherwise as a UUID.
func reference(a *pipeline.Attrs, field string) pipeline.Reference {
	if n, ok := a.Int(field); ok {
		return pipeline.Reference{ID: n}
	}
	return pipeline.Reference{UUID: a.String(field)}
}
