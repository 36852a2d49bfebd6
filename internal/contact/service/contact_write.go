package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/urn"
	"tenant-messaging-api/backend/internal/write"
)

// Written is a contact as it stands after a write.
type Written struct {
	Contact *domain.Contact
	// URNs is empty for anonymous orgs.
	URNs       []string
	GroupUUIDs []string
	Groups     []string
	Fields     map[string]string
}

type fieldUpdate struct {
	field *domain.ContactField
	value string
}

func contactWriteSchema() *pipeline.Schema[*write.Env, *Written] {
	return &pipeline.Schema[*write.Env, *Written]{
		Resource: "contact",
		Fields: []pipeline.Field[*write.Env]{
			{Name: "uuid", Type: pipeline.String, MaxLength: 36, Validate: validateContactUUID},
			{Name: "name", Type: pipeline.String, MaxLength: domain.MaxNameLength},
			{Name: "language", Type: pipeline.String, MaxLength: 4, Validate: validateLanguage},
			{Name: "urns", Type: pipeline.StringList, Validate: validateContactURNs},
			{Name: "addresses", Type: pipeline.StringList, Validate: validateContactURNs},
			{Name: "group_uuids", Type: pipeline.StringList, Validate: validateGroupUUIDs},
			{Name: "fields", Type: pipeline.StringMap, Validate: validateFieldKeys},
			{Name: "phone", Type: pipeline.String, MaxLength: 16, Validate: validateContactPhone},
			{Name: "groups", Type: pipeline.StringList, Validate: validateGroupNames},
		},
		Rules: []pipeline.Rule[*write.Env]{
			pipeline.Exclusive[*write.Env](pipeline.Alias{Canonical: "addresses", Legacy: "urns"}),
			requireIdentity,
			groupAliases,
			urnsOwnedByOthers,
		},
		Mutate: mutateContact,
	}
}

func validateContactUUID(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	c, err := env.Resolve.Contact(ctx, a.String(field))
	if err != nil {
		return err
	}
	a.Attach("contact", c)
	return nil
}

func validateLanguage(_ context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	lang := strings.TrimSpace(a.String(field))
	if lang == "" {
		a.Set(field, "")
		return nil
	}
	if len(env.Org.Languages) == 0 {
		return pipeline.Invalid("You do not have any languages configured for your organization.")
	}
	if !env.Org.HasLanguage(lang) {
		return pipeline.Invalid("Language code '%s' is not one of supported for organization. (%s)",
			lang, strings.Join(env.Org.Languages, ","))
	}
	a.Set(field, strings.ToLower(lang))
	return nil
}

func validateContactURNs(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	country, err := TelCountry(ctx, env)
	if err != nil {
		return err
	}
	urns, err := ParseURNs(a.Strings(field), country)
	if err != nil {
		return err
	}
	a.Set(field, urns)
	return nil
}

func validateContactPhone(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	phone := strings.TrimSpace(a.String(field))
	if phone == "" {
		return nil
	}
	country, err := TelCountry(ctx, env)
	if err != nil {
		return err
	}
	e164, err := urn.ParsePhone(phone, country)
	if err != nil {
		return pipeline.Invalid("Invalid phone number: '%s'", phone)
	}
	a.Set(field, e164)
	return nil
}

func validateGroupUUIDs(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	groups, err := env.Resolve.Groups(ctx, a.Strings(field))
	if err != nil {
		return err
	}
	a.Attach("group_uuids", groups)
	return nil
}

func validateGroupNames(_ context.Context, _ *write.Env, a *pipeline.Attrs, field string) error {
	for _, name := range a.Strings(field) {
		if !domain.IsValidGroupName(name) {
			return pipeline.Invalid("Invalid group name: '%s'", name)
		}
	}
	return nil
}

// validateFieldKeys matches each key against the org's fields by key, then by label.
func validateFieldKeys(ctx context.Context, env *write.Env, a *pipeline.Attrs, field string) error {
	values := a.StringMap(field)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]fieldUpdate, 0, len(keys))
	for _, key := range keys {
		f, err := env.Store.Fields().GetByKey(ctx, env.OrgID(), key)
		if err != nil {
			return err
		}
		if f == nil {
			if f, err = env.Store.Fields().GetByLabel(ctx, env.OrgID(), key); err != nil {
				return err
			}
		}
		if f == nil {
			return pipeline.Invalid("Invalid contact field key: '%s'", key)
		}
		updates = append(updates, fieldUpdate{field: f, value: values[key]})
	}
	a.Attach("fields", updates)
	return nil
}

// addressInput returns the addresses named by urns, addresses or phone, and whether any of them was given.
func addressInput(a *pipeline.Attrs) ([]urn.URN, bool) {
	switch {
	case a.Has("urns"):
		return a.URNs("urns"), true
	case a.Has("addresses"):
		return a.URNs("addresses"), true
	case a.String("phone") != "":
		return []urn.URN{urn.NewTel(a.String("phone"))}, true
	}
	return nil, false
}

func requireIdentity(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	givenURNs := a.Has("urns") || a.Has("addresses")
	hasURNs := len(a.URNs("urns")) > 0 || len(a.URNs("addresses")) > 0
	hasPhone := a.String("phone") != ""
	hasUUID := a.String("uuid") != ""
	if (!hasURNs && !hasPhone && !hasUUID) || (givenURNs && hasPhone) {
		return pipeline.Conflict("", "Must provide either urns, phone or uuid but only one of each")
	}
	return nil
}

func groupAliases(_ context.Context, _ *write.Env, a *pipeline.Attrs) error {
	if len(a.Strings("group_uuids")) > 0 && len(a.Strings("groups")) > 0 {
		return pipeline.Conflict("", "Parameter groups is deprecated and can't be used together with group_uuids")
	}
	return nil
}

// urnsOwnedByOthers rejects an update that would take addresses from another contact.
func urnsOwnedByOthers(ctx context.Context, env *write.Env, a *pipeline.Attrs) error {
	contact, ok := pipeline.Resolved[*domain.Contact](a, "contact")
	if !ok {
		return nil
	}
	urns, given := addressInput(a)
	if !given {
		return nil
	}
	var taken []string
	for _, u := range urns {
		row, err := env.Store.URNs().GetByIdentity(ctx, env.OrgID(), u.String())
		if err != nil {
			return err
		}
		if row == nil || row.ContactID == nil || row.IsOwnedBy(contact.ID) {
			continue
		}
		owner, err := env.Store.Contacts().GetByID(ctx, env.OrgID(), *row.ContactID)
		if err != nil {
			return err
		}
		if owner != nil {
			taken = append(taken, u.String())
		}
	}
	if len(taken) == 0 {
		return nil
	}
	if a.String("phone") != "" && !a.Has("urns") && !a.Has("addresses") {
		return pipeline.Conflict("", "phone %s is used by another contact", a.String("phone"))
	}
	return pipeline.Conflict("", "URNs %s are used by other contacts", strings.Join(taken, ", "))
}

func mutateContact(ctx context.Context, env *write.Env, a *pipeline.Attrs) (*Written, error) {
	if err := env.Allow(ctx, "contact", "", false); err != nil {
		return nil, err
	}

	urns, given := addressInput(a)
	contact, existing := pipeline.Resolved[*domain.Contact](a, "contact")
	if existing {
		env.Updating()
		if given {
			if err := UpdateURNs(ctx, env, contact, urns); err != nil {
				return nil, err
			}
		}
	} else {
		var err error
		if contact, _, err = GetOrCreateByURNs(ctx, env, urns); err != nil {
			return nil, err
		}
	}

	changed := false
	if name := a.String("name"); name != "" {
		contact.Name = name
		changed = true
	}
	if a.Has("language") {
		contact.Language = a.String("language")
		changed = true
	}
	if changed {
		contact.ModifiedBy, contact.ModifiedAt = env.UserID, env.Now
		if err := env.Store.Contacts().Update(ctx, contact); err != nil {
			return nil, fmt.Errorf("update contact: %w", err)
		}
	}

	if updates, ok := pipeline.Resolved[[]fieldUpdate](a, "fields"); ok {
		for _, u := range updates {
			if err := SetField(ctx, env, contact, u.field, u.value); err != nil {
				return nil, fmt.Errorf("set field %s: %w", u.field.Key, err)
			}
		}
	}

	if groups, ok := pipeline.Resolved[[]*domain.Group](a, "group_uuids"); ok {
		if err := UpdateGroups(ctx, env, contact, groups); err != nil {
			return nil, err
		}
	} else if a.Has("groups") {
		groups := make([]*domain.Group, 0, len(a.Strings("groups")))
		for _, name := range a.Strings("groups") {
			g, err := GetOrCreateGroup(ctx, env, name)
			if err != nil {
				return nil, err
			}
			groups = append(groups, g)
		}
		if err := UpdateGroups(ctx, env, contact, groups); err != nil {
			return nil, err
		}
	}

	return describe(ctx, env, contact, a)
}

func describe(ctx context.Context, env *write.Env, contact *domain.Contact, a *pipeline.Attrs) (*Written, error) {
	out := &Written{Contact: contact, Fields: map[string]string{}}
	if !env.Org.Anonymous {
		rows, err := env.Store.URNs().ListByContact(ctx, contact.ID)
		if err != nil {
			return nil, fmt.Errorf("list contact urns: %w", err)
		}
		for _, r := range rows {
			out.URNs = append(out.URNs, r.Identity())
		}
	}
	ids, err := env.Store.Contacts().GroupIDs(ctx, contact.ID)
	if err != nil {
		return nil, fmt.Errorf("list contact groups: %w", err)
	}
	for _, id := range ids {
		g, err := env.Store.Groups().GetByID(ctx, env.OrgID(), id)
		if err != nil {
			return nil, fmt.Errorf("load group: %w", err)
		}
		if g != nil {
			out.GroupUUIDs = append(out.GroupUUIDs, g.UUID)
			out.Groups = append(out.Groups, g.Name)
		}
	}
	if updates, ok := pipeline.Resolved[[]fieldUpdate](a, "fields"); ok {
		for _, u := range updates {
			out.Fields[u.field.Key] = u.value
		}
	}
	return out, nil
}
