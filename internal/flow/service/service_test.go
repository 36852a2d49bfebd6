package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/dispatch"
	"tenant-messaging-api/backend/internal/flow/domain"
	orgdomain "tenant-messaging-api/backend/internal/organization/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/server/middleware"
	"tenant-messaging-api/backend/internal/store/memstore"
	"tenant-messaging-api/backend/internal/write"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*dispatch.Event
}

func (r *recordingDispatcher) Dispatch(_ context.Context, ev *dispatch.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	ctx context.Context
	st  *memstore.Store
	svc *Service
	d   *recordingDispatcher
}

func setup(t *testing.T, anonymous, withChannel bool) *fixture {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.Orgs().CreateOrganization(ctx, &orgdomain.Org{
		ID: "org-1", Name: "Nyaruka", Status: orgdomain.OrgStatusActive, Anonymous: anonymous,
	}))
	if withChannel {
		st.AddChannel(&channeldomain.Channel{UUID: "ch-1", OrgID: "org-1", Country: "RW", Scheme: "tel", Role: "SR", IsActive: true})
	}
	d := &recordingDispatcher{}
	return &fixture{
		ctx: middleware.WithIdentity(ctx, "user-1", "org-1"),
		st:  st,
		svc: NewService(write.NewWriter(st), d),
		d:   d,
	}
}

func (f *fixture) flow(t *testing.T, archived bool) *domain.Flow {
	t.Helper()
	fl := &domain.Flow{UUID: "f-1", OrgID: "org-1", Name: "Survey", FlowType: domain.FlowTypeFlow, IsActive: true, IsArchived: archived}
	require.NoError(t, f.st.Flows().Create(context.Background(), fl))
	return fl
}

func (f *fixture) contact(t *testing.T, uuid string) *contactdomain.Contact {
	t.Helper()
	c := &contactdomain.Contact{UUID: uuid, OrgID: "org-1", IsActive: true}
	require.NoError(t, f.st.Contacts().Create(context.Background(), c))
	return c
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	ve, ok := pipeline.AsValidation(err)
	require.True(t, ok, "want validation error, got %v", err)
	return ve.Map()
}

func TestWriteFlow_CreateAndReplaceDefinition(t *testing.T) {
	f := setup(t, false, false)

	created, err := f.svc.WriteFlow(f.ctx, map[string]any{"name": "Registration", "flow_type": "F"})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)

	def := map[string]any{"entry": "a-1", "action_sets": []any{}}
	updated, err := f.svc.WriteFlow(f.ctx, map[string]any{
		"uuid": created.UUID, "name": "Registration v2", "flow_type": "S", "definition": def,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, domain.FlowTypeSurvey, updated.FlowType)

	var got map[string]any
	require.NoError(t, json.Unmarshal(updated.Definition, &got))
	assert.Equal(t, "a-1", got["entry"])
}

func TestWriteFlow_Errors(t *testing.T) {
	f := setup(t, false, false)

	_, err := f.svc.WriteFlow(f.ctx, map[string]any{"uuid": "nope", "name": "X", "flow_type": "Q"})
	errs := fieldErrors(t, err)
	assert.Equal(t, []string{"No such flow with UUID: nope"}, errs["uuid"])
	assert.Equal(t, []string{"Invalid flow type: Q"}, errs["flow_type"])

	_, err = f.svc.WriteFlow(f.ctx, map[string]any{"name": "X", "flow_type": "F", "definition": "not an object"})
	assert.Contains(t, fieldErrors(t, err), "definition")
	assert.Equal(t, 0, f.st.Counts().Flows)
}

func TestStartFlow_ContactsAndGroups(t *testing.T) {
	f := setup(t, false, false)
	fl := f.flow(t, false)
	a := f.contact(t, "c-a")
	b := f.contact(t, "c-b")
	g := &contactdomain.Group{UUID: "g-1", OrgID: "org-1", Name: "Farmers", IsActive: true}
	require.NoError(t, f.st.Groups().Create(context.Background(), g))
	require.NoError(t, f.st.Contacts().AddToGroup(context.Background(), a.ID, g.ID))
	require.NoError(t, f.st.Contacts().AddToGroup(context.Background(), b.ID, g.ID))

	runs, err := f.svc.StartFlow(f.ctx, map[string]any{
		"flow_uuid": fl.UUID, "contacts": []any{"c-a"}, "groups": []any{"g-1"}, "extra": map[string]any{"source": "api"},
	})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "api", runs[0].Extra["source"])
	assert.Eventually(t, func() bool { return f.d.count() == 1 }, time.Second, 10*time.Millisecond)
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	assert.Equal(t, dispatch.KindFlowStart, f.d.events[0].Kind)
	assert.Len(t, f.d.events[0].RunIDs, 2)
}

func TestStartFlow_RestartParticipants(t *testing.T) {
	f := setup(t, false, false)
	fl := f.flow(t, false)
	f.contact(t, "c-a")
	f.contact(t, "c-b")

	_, err := f.svc.StartFlow(f.ctx, map[string]any{"flow": fl.ID, "contact": []any{"c-a"}})
	require.NoError(t, err)

	runs, err := f.svc.StartFlow(f.ctx, map[string]any{
		"flow_uuid": fl.UUID, "contacts": []any{"c-a", "c-b"}, "restart_participants": false,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	runs, err = f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": fl.UUID, "contacts": []any{"c-a", "c-b"}})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, 4, f.st.Counts().Runs)
}

func TestStartFlow_NoRecipientsIsEmpty(t *testing.T) {
	f := setup(t, false, false)
	fl := f.flow(t, false)

	runs, err := f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": fl.UUID})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
	assert.Equal(t, 0, f.d.count())
}

func TestStartFlow_PhonesBecomeContacts(t *testing.T) {
	f := setup(t, false, true)
	fl := f.flow(t, false)

	runs, err := f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": fl.UUID, "phone": []any{"0788123123", "+250788000001"}})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, 2, f.st.Counts().Contacts)

	_, err = f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": fl.UUID, "phone": "+250788123123"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.st.Counts().Contacts)
}

func TestStartFlow_Errors(t *testing.T) {
	tests := []struct {
		name        string
		anon        bool
		withChannel bool
		archived    bool
		body        map[string]any
		field       string
		msg         string
	}{
		{"no flow", false, true, false, map[string]any{"contacts": []any{}}, pipeline.NonFieldErrors, "Use flow_uuid to specify which flow to start"},
		{"archived", false, true, true, map[string]any{"flow_uuid": "f-1"}, "flow_uuid", "You cannot start an archived flow."},
		{"unknown flow", false, true, false, map[string]any{"flow_uuid": "f-404"}, "flow_uuid", "No flow with UUID f-404"},
		{"unknown contact", false, true, false, map[string]any{"flow_uuid": "f-1", "contacts": []any{"c-404"}}, "contacts", "Unable to find contact with uuid: c-404"},
		{"bad phone", false, true, false, map[string]any{"flow_uuid": "f-1", "phone": []any{"12"}}, "phone", "Invalid phone number: '12'"},
		{"phone without channel", false, false, false, map[string]any{"flow_uuid": "f-1", "phone": []any{"+250788123123"}}, "phone", "You cannot start a flow for a phone number without a phone channel"},
		{"anonymous phone", true, true, false, map[string]any{"flow_uuid": "f-1", "phone": []any{"+250788123123"}}, "phone", "Cannot start flows for anonymous organizations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.anon, tt.withChannel)
			f.flow(t, tt.archived)

			_, err := f.svc.StartFlow(f.ctx, tt.body)
			assert.Contains(t, fieldErrors(t, err)[tt.field], tt.msg)
			assert.Equal(t, 0, f.st.Counts().Runs)
			assert.Equal(t, 0, f.st.Counts().Contacts)
		})
	}
}

func TestStartFlow_HiddenFlowIsNotFound(t *testing.T) {
	f := setup(t, false, true)
	hidden := &domain.Flow{UUID: "f-sys", OrgID: "org-1", Name: "Single Message", FlowType: domain.FlowTypeMessage, IsActive: true, IsSystem: true}
	require.NoError(t, f.st.Flows().Create(context.Background(), hidden))

	_, err := f.svc.StartFlow(f.ctx, map[string]any{"flow": hidden.ID})
	assert.Equal(t, []string{fmt.Sprintf("No flow with id %d", hidden.ID)}, fieldErrors(t, err)["flow"])

	_, err = f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": "f-sys"})
	assert.Equal(t, []string{"No flow with UUID f-sys"}, fieldErrors(t, err)["flow_uuid"])
	assert.Equal(t, 0, f.st.Counts().Runs)
}

func TestStartFlow_AliasesAreExclusive(t *testing.T) {
	f := setup(t, false, true)
	fl := f.flow(t, false)
	f.contact(t, "c-a")

	_, err := f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": fl.UUID, "flow": fl.ID, "contacts": []any{"c-a"}})
	assert.Equal(t, []string{"Parameters flow and flow_uuid are mutually exclusive"}, fieldErrors(t, err)[pipeline.NonFieldErrors])

	_, err = f.svc.StartFlow(f.ctx, map[string]any{"flow_uuid": fl.UUID, "contacts": []any{"c-a"}, "contact": []any{"c-a"}})
	assert.Equal(t, []string{"Parameters contact and contacts are mutually exclusive"}, fieldErrors(t, err)[pipeline.NonFieldErrors])
	assert.Equal(t, 0, f.st.Counts().Runs)
}

func TestSingleMessageFlows_Lifecycle(t *testing.T) {
	f := setup(t, false, false)
	var flows SingleMessageFlows

	ctx := context.Background()
	env := &write.Env{Org: &orgdomain.Org{ID: "org-1"}, UserID: "user-1", Store: f.st}
	hidden, err := flows.Create(ctx, env, "Hello")
	require.NoError(t, err)
	assert.True(t, hidden.IsSystem)
	assert.Contains(t, string(hidden.Definition), "Hello")

	require.NoError(t, flows.Update(ctx, env, hidden, "Bye"))
	require.NoError(t, flows.Rename(ctx, env, hidden, "Reminders: 1 days after Birthday"))
	stored, ok := f.st.FlowByID(hidden.ID)
	require.True(t, ok)
	assert.Contains(t, string(stored.Definition), "Bye")
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, "Reminders: 1 days after Birthday", stored.Name)

	require.NoError(t, flows.Detach(ctx, env, hidden))
	stored, _ = f.st.FlowByID(hidden.ID)
	assert.False(t, stored.IsActive)

	user := f.flow(t, false)
	require.NoError(t, flows.Rename(ctx, env, user, "Renamed"))
	require.NoError(t, flows.Detach(ctx, env, user))
	stored, _ = f.st.FlowByID(user.ID)
	assert.Equal(t, "Survey", stored.Name)
	assert.True(t, stored.IsActive)
	assert.Error(t, flows.Update(ctx, env, user, "nope"))
}
