package service

import (
	"context"
	"fmt"

	"tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// ActionResult reports how many messages a bulk action changed.
type ActionResult struct {
	Action  domain.Action
	Matched int
	Changed int
}

func bulkActionSchema() *pipeline.Schema[*write.Env, *ActionResult] {
	return &pipeline.Schema[*write.Env, *ActionResult]{
		Resource: "message_action",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "messages", Type: pipeline.IntegerList, Required: true},
			{Name: "action", Type: pipeline.String, Required: true, Validate: validateAction},
			{Name: "label", Type: pipeline.String, Validate: validateLabelName, BlankIsAbsent: true},
			{Name: "label_uuid", Type: pipeline.String, Validate: validateActionLabel, BlankIsAbsent: true},
		},
		Rules: []pipeline.Rule[*write.Env]{
			pipeline.Exclusive[*write.Env](pipeline.Alias{Canonical: "label_uuid", Legacy: "label"}),
			actionLabel,
		},
		Mutate: applyAction,
	}
}

func validateAction(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	action := a.String(field)
	for _, known := range domain.Actions {
		if action == known {
			return nil
		}
	}
	return pipeline.Invalid("Invalid action name: %s", action)
}

func validateActionLabel(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	l, err := env.Resolve.Label(ctx, a.String(field))
	if err != nil {
		return err
	}
	a.Attach("label", l)
	return nil
}

func actionLabel(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	action := domain.Action(a.String("action"))
	if action.NeedsLabel() && !a.Has("label") && !a.Has("label_uuid") {
		return pipeline.Conflict("", "For action %s you must also specify label or label_uuid", action)
	}
	return nil
}

// applyAction runs the action's transition on each matched incoming message in turn, so every label count
// moves with the messages that actually changed state.
func applyAction(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*ActionResult, error) {
	action := domain.Action(a.String("action"))
	var label *domain.Label
	if action.NeedsLabel() {
		var ok bool
		if label, ok = pipeline.Resolved[*domain.Label](a, "label"); !ok {
			var err error
			if label, err = getOrCreateLabel(ctx, env, a.String("label")); err != nil {
				return nil, err
			}
		}
	}

	msgs, err := env.Store.Msgs().ListForAction(ctx, env.OrgID(), domain.DirectionIncoming, a.Ints("messages"))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	t := transitions{env: env}
	res := &ActionResult{Action: action, Matched: len(msgs)}
	for _, m := range msgs {
		var changed bool
		switch action {
		case domain.ActionLabel:
			changed, err = t.label(ctx, m, label)
		case domain.ActionUnlabel:
			changed, err = t.unlabel(ctx, m, label)
		case domain.ActionArchive:
			changed, err = t.archive(ctx, m)
		case domain.ActionUnarchive:
			changed, err = t.restore(ctx, m)
		case domain.ActionDelete:
			changed, err = t.release(ctx, m)
		}
		if err != nil {
			return nil, fmt.Errorf("%s message %d: %w", action, m.ID, err)
		}
		if changed {
			res.Changed++
		}
	}
	return res, nil
}
