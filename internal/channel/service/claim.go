package service

import (
	"context"
	"fmt"
	"strings"

	"tenant-messaging-api/backend/internal/channel/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/urn"
	"tenant-messaging-api/backend/internal/write"
)

func (s *Service) claimSchema() *pipeline.Schema[*write.Env, *domain.Channel] {
	return &pipeline.Schema[*write.Env, *domain.Channel]{
		Resource: "channel",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "claim_code", Type: pipeline.String, Required: true, MaxLength: domain.MaxClaimCodeLength, Validate: validateClaimCode},
			{Name: "phone", Type: pipeline.String, Required: true, MaxLength: domain.MaxPhoneLength, Validate: validateClaimPhone},
			{Name: "name", Type: pipeline.String, MaxLength: domain.MaxNameLength},
		},
		Mutate: s.claim,
	}
}

// validateClaimCode finds the unclaimed channel registered with the code. Unclaimed channels belong to no org
// yet, so this is the one lookup not scoped to the caller's org.
func validateClaimCode(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	code := strings.TrimSpace(a.String(field))
	if code == "" {
		return pipeline.Invalid("Invalid claim code: '%s'", code)
	}
	ch, err := env.Store.Channels().GetByClaimCode(ctx, code)
	if err != nil {
		return fmt.Errorf("load channel by claim code: %w", err)
	}
	if ch == nil {
		return pipeline.Invalid("Invalid claim code: '%s'", code)
	}
	a.Set(field, code)
	a.Attach("channel", ch)
	return nil
}

// validateClaimPhone normalizes the relayer's number with the channel's country. It is skipped when the claim
// code did not resolve.
func validateClaimPhone(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	ch, ok := pipeline.Resolved[*domain.Channel](a, "channel")
	if !ok {
		return nil
	}
	phone := strings.TrimSpace(a.String(field))
	e164, err := urn.ParsePhone(phone, ch.Country)
	if err != nil {
		return pipeline.Invalid("Invalid phone number: '%s'", phone)
	}
	a.Set(field, e164)
	return nil
}

func (s *Service) claim(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*domain.Channel, error) {
	if err := env.Allow(ctx, "channel", "", false); err != nil {
		return nil, err
	}
	ch, _ := pipeline.Resolved[*domain.Channel](a, "channel")
	ch.Claim(env.OrgID(), a.String("phone"), strings.TrimSpace(a.String("name")), env.UserID, env.Now)
	if err := env.Store.Channels().Claim(ctx, ch); err != nil {
		return nil, fmt.Errorf("claim channel: %w", err)
	}
	env.AfterCommit(func() { s.notify(ch) })
	return ch, nil
}
