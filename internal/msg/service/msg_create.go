package service

import (
	"context"
	"errors"
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

// Sent is the result of a message create: the broadcast and the ids of its outgoing messages.
type Sent struct {
	Broadcast  *domain.Broadcast
	MessageIDs []int64
}

func (s *Service) msgCreateSchema() *pipeline.Schema[*write.Env, *Sent] {
	return &pipeline.Schema[*write.Env, *Sent]{
		Resource: "message",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "channel", Type: pipeline.Ref, Validate: validateChannel},
			{Name: "text", Type: pipeline.String, Required: true, MaxLength: domain.MaxTextLength},
			{Name: "urn", Type: pipeline.StringList, Validate: validateMsgURNs},
			{Name: "contact", Type: pipeline.StringList, Validate: validateContacts},
			{Name: "phone", Type: pipeline.AddressList, Validate: validateMsgPhones},
		},
		Rules:  []pipeline.Rule[*write.Env]{msgRecipients},
		Mutate: s.createMsgs,
	}
}

// msgChannel returns the channel to send on: the one given, else the org's most recently seen channel. It
// returns nil when a channel was given but did not resolve.
func msgChannel(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*channeldomain.Channel, error) {
	if ch, ok := pipeline.Resolved[*channeldomain.Channel](a, "channel"); ok {
		return ch, nil
	}
	if a.Has("channel") {
		return nil, nil
	}
	ch, err := env.Resolve.DefaultChannel(ctx)
	if err != nil {
		return nil, err
	}
	a.Attach("channel", ch)
	return ch, nil
}

// addressChannel is msgChannel for the address validators, which report a missing channel against themselves.
func addressChannel(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*channeldomain.Channel, error) {
	ch, err := msgChannel(ctx, env, a)
	if errors.Is(err, pipeline.ErrNotFound) || (err == nil && ch == nil) {
		return nil, pipeline.Invalid("You must specify a valid channel")
	}
	return ch, err
}

func validateMsgURNs(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	if err := env.Allow(ctx, "message", field, true); err != nil {
		return err
	}
	ch, err := addressChannel(ctx, env, a)
	if err != nil {
		return err
	}
	urns, err := contactservice.ParseURNs(a.Strings(field), ch.Country)
	if err != nil {
		return err
	}
	a.Set(field, urns)
	return nil
}

func validateMsgPhones(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	if err := env.Allow(ctx, "message", field, true); err != nil {
		return err
	}
	ch, err := addressChannel(ctx, env, a)
	if err != nil {
		return err
	}
	phones, err := contactservice.PreparePhones(a.URNs(field), ch.Country)
	if err != nil {
		return err
	}
	a.Set(field, phones)
	return nil
}

func msgRecipients(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	urns := len(a.URNs("urn")) > 0
	phones := len(a.URNs("phone")) > 0
	contacts := len(a.Strings("contact")) > 0
	if (!urns && !phones && !contacts) || (urns && phones) {
		return pipeline.Conflict("", "Must provide either urns or phone or contact and not both")
	}
	return nil
}

type recipient struct {
	contact *contactdomain.Contact
	urn     *contactdomain.ContactURN
}

// createMsgs creates a broadcast and one queued outgoing message per recipient. Raw addresses each become their
// own contact and are sent to directly; contacts given by UUID are sent to on their preferred address for the
// channel's scheme and skipped when they have none.
func (s *Service) createMsgs(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*Sent, error) {
	if !a.Has("urn") && !a.Has("phone") {
		if err := env.Allow(ctx, "message", "", false); err != nil {
			return nil, err
		}
	}
	ch, err := msgChannel(ctx, env, a)
	if err != nil {
		var fe *pipeline.FieldError
		if errors.As(err, &fe) {
			fe.Field = "channel"
		}
		return nil, err
	}

	addresses := a.URNs("urn")
	if len(addresses) == 0 {
		addresses = a.URNs("phone")
	}
	var recipients []recipient
	for _, u := range addresses {
		c, rows, err := contactservice.GetOrCreateByURNs(ctx, env, []urn.URN{u})
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient{contact: c, urn: rows[0]})
	}
	contacts, _ := pipeline.Resolved[[]*contactdomain.Contact](a, "contact")
	for _, c := range contacts {
		rows, err := env.Store.URNs().ListByContact(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list contact urns: %w", err)
		}
		for _, r := range rows {
			if r.Scheme == ch.Scheme {
				recipients = append(recipients, recipient{contact: c, urn: r})
				break
			}
		}
	}

	chID := ch.ID
	b := &domain.Broadcast{
		UUID:      uuid.NewString(),
		OrgID:     env.OrgID(),
		Text:      a.String("text"),
		ChannelID: &chID,
		Status:    domain.StatusQueued,
		CreatedBy: env.UserID,
		CreatedAt: env.Now,
	}
	for _, c := range contacts {
		b.ContactIDs = append(b.ContactIDs, c.ID)
	}
	for _, u := range addresses {
		b.URNs = append(b.URNs, u.String())
	}
	if err := env.Store.Broadcasts().Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}

	sent := &Sent{Broadcast: b, MessageIDs: []int64{}}
	seen := map[int64]bool{}
	for _, r := range recipients {
		if seen[r.urn.ID] {
			continue
		}
		seen[r.urn.ID] = true
		bID, urnID := b.ID, r.urn.ID
		m := &domain.Msg{
			UUID:         uuid.NewString(),
			OrgID:        env.OrgID(),
			BroadcastID:  &bID,
			ContactID:    r.contact.ID,
			ContactURNID: &urnID,
			ChannelID:    &chID,
			Text:         b.Text,
			Direction:    domain.DirectionOutgoing,
			Status:       domain.StatusQueued,
			Visibility:   domain.VisibilityVisible,
			CreatedAt:    env.Now,
		}
		if err := env.Store.Msgs().Create(ctx, m); err != nil {
			return nil, fmt.Errorf("create message: %w", err)
		}
		sent.MessageIDs = append(sent.MessageIDs, m.ID)
	}

	ev := &dispatch.Event{
		OrgID:       env.OrgID(),
		Kind:        dispatch.KindMessage,
		BroadcastID: b.ID,
		MessageIDs:  sent.MessageIDs,
		CreatedAt:   env.Now,
	}
	env.AfterCommit(func() { dispatch.DispatchAsync(s.dispatcher, s.w.Logger(), ev) })
	return sent, nil
}
