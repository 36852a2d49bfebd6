package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campaigndomain "tenant-messaging-api/backend/internal/campaign/domain"
	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	flowdomain "tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/store/memstore"
)

func TestContact_CrossTenantIsNotFound(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, st.Contacts().Create(ctx, &contactdomain.Contact{UUID: "c-1", OrgID: "org-2", IsActive: true}))

	_, err := New(st, "org-1").Contact(ctx, "c-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Unable to find contact with uuid: c-1", err.Error())

	c, err := New(st, "org-2").Contact(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.UUID)
}

func TestContact_InactiveIsNotFound(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, st.Contacts().Create(ctx, &contactdomain.Contact{UUID: "c-1", OrgID: "org-1", IsActive: false}))

	_, err := New(st, "org-1").Contact(ctx, "c-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroups_StopsAtFirstMiss(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, st.Groups().Create(ctx, &contactdomain.Group{UUID: "g-1", OrgID: "org-1", Name: "A", IsActive: true}))

	_, err := New(st, "org-1").Groups(ctx, []string{"g-1", "g-404"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "g-404")
}

func TestCampaign_ByIDAndUUID(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	c := &campaigndomain.Campaign{UUID: "camp-1", OrgID: "org-1", Name: "Reminders", GroupID: 1, IsActive: true}
	require.NoError(t, st.Campaigns().Create(ctx, c))
	r := New(st, "org-1")

	got, err := r.Campaign(ctx, pipeline.Reference{ID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, "camp-1", got.UUID)

	got, err = r.Campaign(ctx, pipeline.Reference{UUID: "camp-1"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = r.Campaign(ctx, pipeline.Reference{ID: 999})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "No campaign with id 999", err.Error())

	_, err = r.Campaign(ctx, pipeline.Reference{UUID: "nope"})
	assert.Equal(t, "No campaign with UUID nope", err.Error())
}

func TestFlow_ArchivedStillResolves(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	f := &flowdomain.Flow{UUID: "f-1", OrgID: "org-1", Name: "Survey", FlowType: flowdomain.FlowTypeFlow, IsActive: true, IsArchived: true}
	require.NoError(t, st.Flows().Create(ctx, f))

	got, err := New(st, "org-1").Flow(ctx, pipeline.Reference{UUID: "f-1"})
	require.NoError(t, err)
	assert.True(t, got.IsArchived)
}

func TestDefaultChannel(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	_, err := New(st, "org-1").DefaultChannel(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "There are no channels for this organization.", err.Error())

	now := time.Now()
	st.AddChannel(&channeldomain.Channel{UUID: "ch-old", OrgID: "org-1", Scheme: "tel", Role: "SR", IsActive: true, LastSeen: now.Add(-time.Hour)})
	st.AddChannel(&channeldomain.Channel{UUID: "ch-new", OrgID: "org-1", Scheme: "tel", Role: "R", IsActive: true, LastSeen: now})

	ch, err := New(st, "org-1").DefaultChannel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ch-new", ch.UUID)

	send, err := New(st, "org-1").SendChannel(ctx, "tel")
	require.NoError(t, err)
	require.NotNil(t, send)
	assert.Equal(t, "ch-old", send.UUID)
}
