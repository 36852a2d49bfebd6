package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tenant-messaging-api/backend/internal/campaign/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	contactservice "tenant-messaging-api/backend/internal/contact/service"
	flowdomain "tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// WrittenEvent is a campaign event with the entities it references.
type WrittenEvent struct {
	Event      *domain.Event
	Campaign   *domain.Campaign
	Flow       *flowdomain.Flow
	RelativeTo *contactdomain.ContactField
}

func (s *Service) eventWriteSchema() *pipeline.Schema[*write.Env, *WrittenEvent] {
	return &pipeline.Schema[*write.Env, *WrittenEvent]{
		Resource: "campaign_event",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "uuid", Type: pipeline.String, MaxLength: 36, Validate: validateEventRef},
			{Name: "event", Type: pipeline.Integer, Validate: validateEventRef},
			{Name: "campaign_uuid", Type: pipeline.String, MaxLength: 36, Validate: validateCampaignRef},
			{Name: "campaign", Type: pipeline.Integer, Validate: validateCampaignRef},
			{Name: "offset", Type: pipeline.Integer, Required: true},
			{Name: "unit", Type: pipeline.String, Required: true, Validate: validateUnit},
			{Name: "delivery_hour", Type: pipeline.Integer, Required: true, Validate: validateDeliveryHour},
			{Name: "relative_to", Type: pipeline.String, Required: true, MinLength: 3, MaxLength: 64},
			{Name: "message", Type: pipeline.String, MaxLength: domain.MaxEventMessageLength},
			{Name: "flow_uuid", Type: pipeline.String, MaxLength: 36, Validate: validateEventFlow},
			{Name: "flow", Type: pipeline.Integer, Validate: validateEventFlow},
		},
		Rules: []pipeline.Rule[*write.Env]{
			pipeline.Exclusive[*write.Env](
				pipeline.Alias{Canonical: "uuid", Legacy: "event"},
				pipeline.Alias{Canonical: "campaign_uuid", Legacy: "campaign"},
				pipeline.Alias{Canonical: "flow_uuid", Legacy: "flow"},
			),
			messageOrFlow,
			eventTarget,
		},
		Mutate: s.mutateEvent,
	}
}

func validateEventRef(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	e, err := env.Resolve.Event(ctx, reference(a, field))
	if err != nil {
		return err
	}
	a.Attach("event", e)
	return nil
}

func validateEventFlow(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	ref := reference(a, field)
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
	a.Attach("flow", f)
	return nil
}

func validateUnit(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	u, ok := domain.UnitFromString(a.String(field))
	if !ok {
		return pipeline.Invalid("Unit must be one of M, H, D or W for Minute, Hour, Day or Week")
	}
	a.Set(field, string(u))
	return nil
}

func validateDeliveryHour(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	if h, _ := a.Int(field); h < domain.NoDeliveryHour || h > 23 {
		return pipeline.Invalid("Delivery hour must be either -1 (for same hour) or 0-23")
	}
	return nil
}

func messageOrFlow(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	_, hasFlow := pipeline.Resolved[*flowdomain.Flow](a, "flow")
	hasMessage := a.String("message") != ""
	if !hasMessage && !hasFlow {
		return pipeline.Conflict("", "Must specify either a flow or a message for the event")
	}
	if hasMessage && hasFlow {
		return pipeline.Conflict("", "Events cannot have both a message and a flow")
	}
	return nil
}

func eventTarget(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	_, hasEvent := pipeline.Resolved[*domain.Event](a, "event")
	_, hasCampaign := pipeline.Resolved[*domain.Campaign](a, "campaign")
	if hasEvent && hasCampaign {
		return pipeline.Conflict("", "Cannot specify campaign if updating an existing event")
	}
	if !hasEvent && !hasCampaign {
		return pipeline.Conflict("", "Must specify a campaign when creating a new event")
	}
	return nil
}

// mutateEvent creates or updates the event, moving it between the flow and message branches as needed. The
// event keeps its identity across branch switches; only the flow it points at changes.
func (s *Service) mutateEvent(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*WrittenEvent, error) {
	relativeTo, err := contactservice.GetOrCreateFieldByLabel(ctx, env, a.String("relative_to"))
	if err != nil {
		var fe *pipeline.FieldError
		if errors.As(err, &fe) {
			fe.Field = "relative_to"
		}
		return nil, err
	}

	offset, _ := a.Int("offset")
	hour, _ := a.Int("delivery_hour")
	userFlow, toFlow := pipeline.Resolved[*flowdomain.Flow](a, "flow")
	message := a.String("message")

	e, existing := pipeline.Resolved[*domain.Event](a, "event")
	var (
		campaign *domain.Campaign
		flow     *flowdomain.Flow
	)
	if existing {
		env.Updating()
		if campaign, err = env.Store.Campaigns().GetByIDWithArchived(ctx, env.OrgID(), e.CampaignID); err != nil {
			return nil, fmt.Errorf("load campaign: %w", err)
		}
		if campaign == nil {
			nf := pipeline.NotFound("No campaign with id %d", e.CampaignID)
			nf.Field = "campaign"
			return nil, nf
		}
		current, err := env.Store.Flows().GetByID(ctx, env.OrgID(), e.FlowID)
		if err != nil {
			return nil, fmt.Errorf("load event flow: %w", err)
		}
		switch {
		case toFlow:
			if e.EventType == domain.EventTypeMessage {
				if err := s.hidden.Detach(ctx, env, current); err != nil {
					return nil, err
				}
			}
			flow = userFlow
			e.EventType, e.Message = domain.EventTypeFlow, ""
		case e.EventType == domain.EventTypeMessage && current != nil && current.IsSystem:
			if err := s.hidden.Update(ctx, env, current, message); err != nil {
				return nil, err
			}
			flow = current
			e.Message = message
		default:
			if flow, err = s.hidden.Create(ctx, env, message); err != nil {
				return nil, err
			}
			e.EventType, e.Message = domain.EventTypeMessage, message
		}
		e.FlowID = flow.ID
		e.Offset, e.Unit, e.DeliveryHour, e.RelativeToID = offset, domain.Unit(a.String("unit")), hour, relativeTo.ID
		e.ModifiedBy, e.ModifiedAt = env.UserID, env.Now
		if err := env.Store.Events().Update(ctx, e); err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
	} else {
		campaign, _ = pipeline.Resolved[*domain.Campaign](a, "campaign")
		e = &domain.Event{
			UUID:         uuid.NewString(),
			OrgID:        env.OrgID(),
			CampaignID:   campaign.ID,
			RelativeToID: relativeTo.ID,
			Offset:       offset,
			Unit:         domain.Unit(a.String("unit")),
			DeliveryHour: hour,
			IsActive:     true,
			CreatedBy:    env.UserID,
			ModifiedBy:   env.UserID,
			CreatedAt:    env.Now,
			ModifiedAt:   env.Now,
		}
		if toFlow {
			flow = userFlow
			e.EventType = domain.EventTypeFlow
		} else {
			if flow, err = s.hidden.Create(ctx, env, message); err != nil {
				return nil, err
			}
			e.EventType, e.Message = domain.EventTypeMessage, message
		}
		e.FlowID = flow.ID
		if err := env.Store.Events().Create(ctx, e); err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
	}

	if err := s.hidden.Rename(ctx, env, flow, domain.FlowName(campaign.Name, e, relativeTo.Label)); err != nil {
		return nil, err
	}
	return &WrittenEvent{Event: e, Campaign: campaign, Flow: flow, RelativeTo: relativeTo}, nil
}
