package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	contactservice "tenant-messaging-api/backend/internal/contact/service"
	"tenant-messaging-api/backend/internal/dispatch"
	"tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/urn"
	"tenant-messaging-api/backend/internal/write"
)

// WrittenBroadcast is a created broadcast with its resolved recipients.
type WrittenBroadcast struct {
	Broadcast *domain.Broadcast
	Contacts  []*contactdomain.Contact
	Groups    []*contactdomain.Group
	Channel   *channeldomain.Channel
}

func (s *Service) broadcastSchema() *pipeline.Schema[*write.Env, *WrittenBroadcast] {
	return &pipeline.Schema[*write.Env, *WrittenBroadcast]{
		Resource: "broadcast",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "urns", Type: pipeline.StringList, Validate: validateBroadcastURNs},
			{Name: "contacts", Type: pipeline.StringList, Validate: validateContacts},
			{Name: "groups", Type: pipeline.StringList, Validate: validateGroups},
			{Name: "text", Type: pipeline.String, Required: true, MaxLength: domain.MaxTextLength},
			{Name: "channel", Type: pipeline.Ref, Validate: validateChannel},
		},
		Rules:  []pipeline.Rule[*write.Env]{requireRecipients},
		Mutate: s.createBroadcast,
	}
}

// validateBroadcastURNs normalizes raw addresses with the country of the org's tel send channel.
func validateBroadcastURNs(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	if err := env.Allow(ctx, "broadcast", field, true); err != nil {
		return err
	}
	country, err := contactservice.TelCountry(ctx, env)
	if err != nil {
		return err
	}
	urns, err := contactservice.ParseURNs(a.Strings(field), country)
	if err != nil {
		return err
	}
	a.Set(field, urns)
	return nil
}

func validateContacts(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	contacts, err := env.Resolve.Contacts(ctx, a.Strings(field))
	if err != nil {
		return err
	}
	a.Attach(field, contacts)
	return nil
}

func validateGroups(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	groups, err := env.Resolve.Groups(ctx, a.Strings(field))
	if err != nil {
		return err
	}
	a.Attach(field, groups)
	return nil
}

func validateChannel(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	ref, _ := a.Ref(field)
	ch, err := env.Resolve.Channel(ctx, ref)
	if err != nil {
		return err
	}
	a.Attach("channel", ch)
	return nil
}

func requireRecipients(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	if len(a.URNs("urns")) == 0 && len(a.Strings("contacts")) == 0 && len(a.Strings("groups")) == 0 {
		return pipeline.Conflict("", "Must provide either urns, contacts or groups")
	}
	return nil
}

// createBroadcast stores the broadcast with its recipients, creating contacts for raw addresses. Expansion into
// messages is left to the sender.
func (s *Service) createBroadcast(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*WrittenBroadcast, error) {
	if !a.Has("urns") {
		if err := env.Allow(ctx, "broadcast", "", false); err != nil {
			return nil, err
		}
	}
	out := &WrittenBroadcast{}
	out.Contacts, _ = pipeline.Resolved[[]*contactdomain.Contact](a, "contacts")
	out.Groups, _ = pipeline.Resolved[[]*contactdomain.Group](a, "groups")
	out.Channel, _ = pipeline.Resolved[*channeldomain.Channel](a, "channel")

	b := &domain.Broadcast{
		UUID:      uuid.NewString(),
		OrgID:     env.OrgID(),
		Text:      a.String("text"),
		Status:    domain.StatusQueued,
		CreatedBy: env.UserID,
		CreatedAt: env.Now,
	}
	if out.Channel != nil {
		id := out.Channel.ID
		b.ChannelID = &id
	}
	for _, c := range out.Contacts {
		b.ContactIDs = append(b.ContactIDs, c.ID)
	}
	for _, g := range out.Groups {
		b.GroupIDs = append(b.GroupIDs, g.ID)
	}
	for _, u := range a.URNs("urns") {
		if _, _, err := contactservice.GetOrCreateByURNs(ctx, env, []urn.URN{u}); err != nil {
			return nil, err
		}
		b.URNs = append(b.URNs, u.String())
	}
	if err := env.Store.Broadcasts().Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	out.Broadcast = b

	ev := &dispatch.Event{OrgID: env.OrgID(), Kind: dispatch.KindBroadcast, BroadcastID: b.ID, CreatedAt: env.Now}
	env.AfterCommit(func() { dispatch.DispatchAsync(s.dispatcher, s.w.Logger(), ev) })
	return out, nil
}
