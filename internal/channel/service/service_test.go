package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-messaging-api/backend/internal/channel/domain"
	orgdomain "tenant-messaging-api/backend/internal/organization/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/server/middleware"
	"tenant-messaging-api/backend/internal/store/memstore"
	"tenant-messaging-api/backend/internal/write"
)

type notifications chan *domain.Channel

func (n notifications) Notify(_ context.Context, ch *domain.Channel) error {
	n <- ch
	return nil
}

func setup(t *testing.T) (context.Context, *memstore.Store, *Service, notifications) {
	t.Helper()
	st := memstore.New()
	require.NoError(t, st.Orgs().CreateOrganization(context.Background(), &orgdomain.Org{
		ID: "org-1", Name: "Nyaruka", Status: orgdomain.OrgStatusActive,
	}))
	st.AddChannel(&domain.Channel{
		UUID: "ch-1", Name: "Relayer", Country: "RW", ChannelType: domain.ChannelTypeAndroid,
		Scheme: "tel", Role: "SR", ClaimCode: "AAABBBCCC", IsActive: true, LastSeen: time.Now(),
	})
	n := make(notifications, 1)
	ctx := middleware.WithIdentity(context.Background(), "user-1", "org-1")
	return ctx, st, NewService(write.NewWriter(st), n), n
}

func TestClaim(t *testing.T) {
	ctx, st, svc, n := setup(t)

	ch, err := svc.Claim(ctx, map[string]any{"claim_code": " AAABBBCCC ", "phone": "0788123123", "name": "Kigali"})
	require.NoError(t, err)
	assert.Equal(t, "org-1", ch.OrgID)
	assert.Equal(t, "+250788123123", ch.Address)
	assert.Equal(t, "Kigali", ch.Name)
	assert.Empty(t, ch.ClaimCode)
	assert.Equal(t, "user-1", ch.ClaimedBy)

	stored, err := st.Channels().GetByUUID(context.Background(), "org-1", "ch-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "+250788123123", stored.Address)

	select {
	case got := <-n:
		assert.Equal(t, "ch-1", got.UUID)
	case <-time.After(time.Second):
		t.Fatal("claim not announced")
	}

	_, err = svc.Claim(ctx, map[string]any{"claim_code": "AAABBBCCC", "phone": "0788123123"})
	ve, ok := pipeline.AsValidation(err)
	require.True(t, ok, "code is consumed, got %v", err)
	assert.Equal(t, []string{"Invalid claim code: 'AAABBBCCC'"}, ve.Map()["claim_code"])
}

func TestClaim_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		field string
		msg   string
	}{
		{"unknown code", map[string]any{"claim_code": "NOPE", "phone": "0788123123"}, "claim_code", "Invalid claim code: 'NOPE'"},
		{"blank code", map[string]any{"claim_code": "  ", "phone": "0788123123"}, "claim_code", "This field may not be blank."},
		{"bad phone", map[string]any{"claim_code": "AAABBBCCC", "phone": "12"}, "phone", "Invalid phone number: '12'"},
		{"missing phone", map[string]any{"claim_code": "AAABBBCCC"}, "phone", "This field is required."},
		{"long code", map[string]any{"claim_code": "AAAAABBBBBCCCCCDD", "phone": "0788123123"}, "claim_code", "Ensure this field has no more than 16 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, st, svc, n := setup(t)
			_, err := svc.Claim(ctx, tt.body)
			ve, ok := pipeline.AsValidation(err)
			require.True(t, ok, "want validation error, got %v", err)
			assert.Equal(t, []string{tt.msg}, ve.Map()[tt.field])

			ch, err := st.Channels().GetByClaimCode(context.Background(), "AAABBBCCC")
			require.NoError(t, err)
			assert.NotNil(t, ch, "channel stays unclaimed")
			assert.Empty(t, n)
		})
	}
}
