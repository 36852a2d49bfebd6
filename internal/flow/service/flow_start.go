package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	contactservice "tenant-messaging-api/backend/internal/contact/service"
	"tenant-messaging-api/backend/internal/dispatch"
	"tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/urn"
	"tenant-messaging-api/backend/internal/write"
)

func (s *Service) flowStartSchema() *pipeline.Schema[*write.Env, []*domain.Run] {
	return &pipeline.Schema[*write.Env, []*domain.Run]{
		Resource: "flow_start",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "flow_uuid", Type: pipeline.String, MaxLength: 36, Validate: validateStartFlow},
			{Name: "flow", Type: pipeline.Integer, Validate: validateStartFlow},
			{Name: "groups", Type: pipeline.StringList, Validate: validateStartGroups},
			{Name: "contacts", Type: pipeline.StringList, Validate: validateStartContacts},
			{Name: "contact", Type: pipeline.StringList, Validate: validateStartContacts},
			{Name: "extra", Type: pipeline.StringMap},
			{Name: "restart_participants", Type: pipeline.Boolean},
			{Name: "phone", Type: pipeline.AddressList, Validate: validateStartPhones},
		},
		Rules: []pipeline.Rule[*write.Env]{
			pipeline.Exclusive[*write.Env](
				pipeline.Alias{Canonical: "flow_uuid", Legacy: "flow"},
				pipeline.Alias{Canonical: "contacts", Legacy: "contact"},
			),
			pipeline.AtLeastOne[*write.Env]("Use flow_uuid to specify which flow to start", "flow_uuid", "flow"),
		},
		Mutate: s.startFlow,
	}
}

func validateStartFlow(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	ref := pipeline.Reference{UUID: a.String(field)}
	if n, ok := a.Int(field); ok {
		ref = pipeline.Reference{ID: n}
	}
	f, err := env.Resolve.Flow(ctx, ref)
	if err != nil {
		return err
	}
	if f.IsSystem {
		if ref.IsID() {
			return pipeline.NotFound("No flow with id %d", ref.ID)
		}
		return pipeline.NotFound("No flow with UUID %s", ref.UUID)
	}
	if f.IsArchived {
		return pipeline.Denied(field, "You cannot start an archived flow.")
	}
	a.Attach("flow", f)
	return nil
}

func validateStartGroups(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	groups, err := env.Resolve.Groups(ctx, a.Strings(field))
	if err != nil {
		return err
	}
	a.Attach("groups", groups)
	return nil
}

func validateStartContacts(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	contacts, err := env.Resolve.Contacts(ctx, a.Strings(field))
	if err != nil {
		return err
	}
	a.Attach("contacts", contacts)
	return nil
}

// validateStartPhones normalizes the legacy phone list with the country of the org's tel send channel.
func validateStartPhones(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	if err := env.Allow(ctx, "flow_start", field, true); err != nil {
		return err
	}
	phones := a.URNs(field)
	if len(phones) == 0 {
		return nil
	}
	ch, err := env.Resolve.SendChannel(ctx, urn.TelScheme)
	if err != nil {
		return err
	}
	if ch == nil {
		return pipeline.Denied(field, "You cannot start a flow for a phone number without a phone channel")
	}
	prepared, err := contactservice.PreparePhones(phones, ch.Country)
	if err != nil {
		return err
	}
	a.Set(field, prepared)
	return nil
}

// startFlow creates one run per recipient. Each phone number becomes its own contact. No recipients is not an
// error: the start simply creates nothing.
func (s *Service) startFlow(ctx context.Context, env *write.Env, a *pipeline.Attrs) ([]*domain.Run, error) {
	if !a.Has("phone") {
		if err := env.Allow(ctx, "flow_start", "", false); err != nil {
			return nil, err
		}
	}
	flow, _ := pipeline.Resolved[*domain.Flow](a, "flow")
	groups, _ := pipeline.Resolved[[]*contactdomain.Group](a, "groups")
	contacts, _ := pipeline.Resolved[[]*contactdomain.Contact](a, "contacts")

	for _, phone := range a.URNs("phone") {
		c, _, err := contactservice.GetOrCreateByURNs(ctx, env, []urn.URN{phone})
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}

	if len(groups) > 0 {
		ids := make([]int64, 0, len(groups))
		for _, g := range groups {
			ids = append(ids, g.ID)
		}
		members, err := env.Store.Contacts().ListByGroups(ctx, env.OrgID(), ids)
		if err != nil {
			return nil, fmt.Errorf("list group members: %w", err)
		}
		contacts = append(contacts, members...)
	}

	recipients := uniqueContactIDs(contacts)
	runs := []*domain.Run{}
	if len(recipients) == 0 {
		return runs, nil
	}

	if !a.Bool("restart_participants", true) {
		started, err := env.Store.Runs().ContactsWithRuns(ctx, flow.ID, recipients)
		if err != nil {
			return nil, fmt.Errorf("load participants: %w", err)
		}
		kept := recipients[:0]
		for _, id := range recipients {
			if !started[id] {
				kept = append(kept, id)
			}
		}
		recipients = kept
	}

	extra := a.StringMap("extra")
	ids := make([]int64, 0, len(recipients))
	for _, contactID := range recipients {
		r := &domain.Run{
			UUID:      uuid.NewString(),
			OrgID:     env.OrgID(),
			FlowID:    flow.ID,
			ContactID: contactID,
			IsActive:  true,
			Extra:     extra,
			CreatedBy: env.UserID,
			CreatedAt: env.Now,
		}
		if err := env.Store.Runs().Create(ctx, r); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		runs = append(runs, r)
		ids = append(ids, r.ID)
	}

	if len(ids) > 0 {
		ev := &dispatch.Event{
			OrgID:     env.OrgID(),
			Kind:      dispatch.KindFlowStart,
			FlowID:    flow.ID,
			RunIDs:    ids,
			CreatedAt: env.Now,
		}
		env.AfterCommit(func() { dispatch.DispatchAsync(s.dispatcher, s.w.Logger(), ev) })
	}
	return runs, nil
}

func uniqueContactIDs(contacts []*contactdomain.Contact) []int64 {
	seen := make(map[int64]bool, len(contacts))
	out := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c.ID)
	}
	return out
}
