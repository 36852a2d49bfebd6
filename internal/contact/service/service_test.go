package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	"tenant-messaging-api/backend/internal/contact/domain"
	orgdomain "tenant-messaging-api/backend/internal/organization/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/server/middleware"
	"tenant-messaging-api/backend/internal/store/memstore"
	"tenant-messaging-api/backend/internal/write"
)

func setup(t *testing.T, anonymous bool) (context.Context, *memstore.Store, *Service) {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.Orgs().CreateOrganization(ctx, &orgdomain.Org{
		ID: "org-1", Name: "Nyaruka", Status: orgdomain.OrgStatusActive, Anonymous: anonymous, Languages: []string{"eng", "kin"},
	}))
	st.AddChannel(&channeldomain.Channel{
		UUID: "ch-1", OrgID: "org-1", Country: "RW", Scheme: "tel", Role: "SR", IsActive: true, ChannelType: channeldomain.ChannelTypeAndroid,
	})
	return middleware.WithIdentity(ctx, "user-1", "org-1"), st, NewService(write.NewWriter(st))
}

func requireFieldError(t *testing.T, err error, field, msg string) *pipeline.ValidationError {
	t.Helper()
	ve, ok := pipeline.AsValidation(err)
	require.True(t, ok, "want validation error, got %v", err)
	assert.Contains(t, ve.Map()[field], msg)
	return ve
}

func TestWriteContact_CreatesWithNormalizedURNs(t *testing.T) {
	ctx, st, svc := setup(t, false)

	got, err := svc.WriteContact(ctx, map[string]any{
		"name": "Eric", "language": "ENG", "urns": []any{"tel:0788123123", "twitter:Eric"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Eric", got.Contact.Name)
	assert.Equal(t, "eng", got.Contact.Language)
	assert.Equal(t, []string{"tel:+250788123123", "twitter:eric"}, got.URNs)
	assert.Equal(t, 1, st.Counts().Contacts)
}

func TestWriteContact_SameAddressConverges(t *testing.T) {
	ctx, st, svc := setup(t, false)

	first, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123"})
	require.NoError(t, err)
	second, err := svc.WriteContact(ctx, map[string]any{"urns": []any{"tel:+250788123123"}, "name": "Again"})
	require.NoError(t, err)

	assert.Equal(t, first.Contact.UUID, second.Contact.UUID)
	assert.Equal(t, 1, st.Counts().Contacts)
	assert.Equal(t, 1, st.Counts().URNs)
}

func TestWriteContact_AliasesAreExclusive(t *testing.T) {
	ctx, st, svc := setup(t, false)

	_, err := svc.WriteContact(ctx, map[string]any{
		"urns": []any{"tel:+250788123123"}, "addresses": []any{"tel:+250788123124"},
	})
	requireFieldError(t, err, pipeline.NonFieldErrors, "Parameters urns and addresses are mutually exclusive")
	assert.Equal(t, 0, st.Counts().Contacts)
}

func TestWriteContact_EmptyAddressListWithPhone(t *testing.T) {
	ctx, st, svc := setup(t, false)

	for _, key := range []string{"urns", "addresses"} {
		t.Run(key, func(t *testing.T) {
			_, err := svc.WriteContact(ctx, map[string]any{key: []any{}, "phone": "+250788123123"})
			requireFieldError(t, err, pipeline.NonFieldErrors, "Must provide either urns, phone or uuid but only one of each")
			assert.Equal(t, 0, st.Counts().Contacts)
		})
	}
}

func TestWriteContact_RequiresIdentity(t *testing.T) {
	ctx, _, svc := setup(t, false)

	_, err := svc.WriteContact(ctx, map[string]any{"name": "Nobody"})
	requireFieldError(t, err, pipeline.NonFieldErrors, "Must provide either urns, phone or uuid but only one of each")

	_, err = svc.WriteContact(ctx, map[string]any{"phone": "+250788123123", "urns": []any{"tel:+250788123124"}})
	requireFieldError(t, err, pipeline.NonFieldErrors, "Must provide either urns, phone or uuid but only one of each")
}

func TestWriteContact_AddressOfDeletedContactIsReclaimed(t *testing.T) {
	ctx, st, svc := setup(t, false)

	gone, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123"})
	require.NoError(t, err)
	deleted := *gone.Contact
	deleted.IsActive = false
	require.NoError(t, st.Contacts().Update(context.Background(), &deleted))

	first, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123"})
	require.NoError(t, err)
	assert.NotEqual(t, gone.Contact.UUID, first.Contact.UUID)
	assert.Equal(t, []string{"tel:+250788123123"}, first.URNs)

	second, err := svc.WriteContact(ctx, map[string]any{"urns": []any{"tel:+250788123123"}})
	require.NoError(t, err)
	assert.Equal(t, first.Contact.UUID, second.Contact.UUID)
	assert.Equal(t, 2, st.Counts().Contacts)
	assert.Equal(t, 1, st.Counts().URNs)
}

func TestWriteContact_UnknownUUIDIsNotFoundWithoutMutation(t *testing.T) {
	ctx, st, svc := setup(t, false)

	_, err := svc.WriteContact(ctx, map[string]any{"uuid": "missing", "name": "Ghost", "groups": []any{"New Group"}})
	ve := requireFieldError(t, err, "uuid", "Unable to find contact with uuid: missing")
	assert.Equal(t, pipeline.KindNotFound, ve.Kind("uuid"))
	assert.Equal(t, 0, st.Counts().Contacts)
	assert.Equal(t, 0, st.Counts().Groups)
}

func TestWriteContact_UpdateReplacesURNsAndGroups(t *testing.T) {
	ctx, st, svc := setup(t, false)

	created, err := svc.WriteContact(ctx, map[string]any{
		"urns": []any{"tel:+250788123123"}, "groups": []any{"Farmers", "Nurses"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Farmers", "Nurses"}, created.Groups)

	updated, err := svc.WriteContact(ctx, map[string]any{
		"uuid": created.Contact.UUID, "urns": []any{"tel:+250788999999"}, "groups": []any{"Nurses"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tel:+250788999999"}, updated.URNs)
	assert.Equal(t, []string{"Nurses"}, updated.Groups)
	assert.Equal(t, 2, st.Counts().Groups)

	// the dropped address now resolves to a fresh contact
	other, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123"})
	require.NoError(t, err)
	assert.NotEqual(t, created.Contact.UUID, other.Contact.UUID)
}

func TestWriteContact_URNsOwnedByAnotherContact(t *testing.T) {
	ctx, _, svc := setup(t, false)

	_, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123"})
	require.NoError(t, err)
	b, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788000001"})
	require.NoError(t, err)

	_, err = svc.WriteContact(ctx, map[string]any{"uuid": b.Contact.UUID, "urns": []any{"tel:+250788123123"}})
	requireFieldError(t, err, pipeline.NonFieldErrors, "URNs tel:+250788123123 are used by other contacts")
}

func TestWriteContact_GroupUUIDsAndGroupsConflict(t *testing.T) {
	ctx, st, svc := setup(t, false)
	require.NoError(t, st.Groups().Create(context.Background(), &domain.Group{UUID: "g-1", OrgID: "org-1", Name: "A", IsActive: true}))

	_, err := svc.WriteContact(ctx, map[string]any{
		"phone": "+250788123123", "group_uuids": []any{"g-1"}, "groups": []any{"B"},
	})
	requireFieldError(t, err, pipeline.NonFieldErrors, "Parameter groups is deprecated and can't be used together with group_uuids")

	got, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123", "group_uuids": []any{"g-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"g-1"}, got.GroupUUIDs)
}

func TestWriteContact_Language(t *testing.T) {
	ctx, _, svc := setup(t, false)

	_, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123", "language": "fra"})
	requireFieldError(t, err, "language", "Language code 'fra' is not one of supported for organization. (eng,kin)")
}

func TestWriteContact_Fields(t *testing.T) {
	ctx, st, svc := setup(t, false)
	f := &domain.ContactField{OrgID: "org-1", Key: "age", Label: "Age", ValueType: domain.ValueTypeNumber, IsActive: true}
	require.NoError(t, st.Fields().Create(context.Background(), f))

	got, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123", "fields": map[string]any{"Age": "34"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"age": "34"}, got.Fields)
	v, ok := st.ContactValue(got.Contact.ID, f.ID)
	require.True(t, ok)
	require.NotNil(t, v.Number)
	assert.Equal(t, 34.0, *v.Number)

	_, err = svc.WriteContact(ctx, map[string]any{"phone": "+250788123123", "fields": map[string]any{"shoe": "9"}})
	requireFieldError(t, err, "fields", "Invalid contact field key: 'shoe'")
}

func TestWriteContact_AnonymousOrgIsDenied(t *testing.T) {
	ctx, st, svc := setup(t, true)

	_, err := svc.WriteContact(ctx, map[string]any{"phone": "+250788123123"})
	ve := requireFieldError(t, err, pipeline.NonFieldErrors, "Cannot update contacts on anonymous organizations")
	assert.Equal(t, pipeline.KindDomainRule, ve.Kind(pipeline.NonFieldErrors))
	assert.Equal(t, 0, st.Counts().Contacts)
}

func TestWriteField_CreateThenUpdateByKey(t *testing.T) {
	ctx, st, svc := setup(t, false)

	f, err := svc.WriteField(ctx, map[string]any{"label": "Favorite Color", "value_type": "T"})
	require.NoError(t, err)
	assert.Equal(t, "favorite_color", f.Key)

	f, err = svc.WriteField(ctx, map[string]any{"key": "favorite_color", "label": "Colour", "value_type": "S"})
	require.NoError(t, err)
	assert.Equal(t, "Colour", f.Label)
	assert.Equal(t, domain.ValueTypeState, f.ValueType)
	assert.Equal(t, 1, st.Counts().Fields)
}

func TestWriteField_Errors(t *testing.T) {
	ctx, st, svc := setup(t, false)

	_, err := svc.WriteField(ctx, map[string]any{"key": "nope", "label": "Nope", "value_type": "T"})
	requireFieldError(t, err, "key", "No such contact field key")

	_, err = svc.WriteField(ctx, map[string]any{"label": "Size", "value_type": "Z"})
	requireFieldError(t, err, "value_type", "Invalid field value type")

	_, err = svc.WriteField(ctx, map[string]any{"label": "Phone", "value_type": "T"})
	requireFieldError(t, err, "label", "Field key 'phone' generated from this label is invalid or reserved")
	assert.Equal(t, 0, st.Counts().Fields)
}
