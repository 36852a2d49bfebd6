// Package service implements the contact and contact field writes, and the contact operations other writes
// share: get-or-create by address, group membership and field values.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/urn"
	"tenant-messaging-api/backend/internal/write"
)

// TelCountry returns the country of the org's tel send channel, or "" when it has none.
func TelCountry(ctx context.Context, env *write.Env) (string, error) {
	ch, err := env.Resolve.SendChannel(ctx, urn.TelScheme)
	if err != nil || ch == nil {
		return "", err
	}
	return ch.Country, nil
}

// ParseURNs parses, normalizes and validates raw addresses. The first bad entry fails the whole list.
func ParseURNs(raw []string, country string) ([]urn.URN, error) {
	out := make([]urn.URN, 0, len(raw))
	for _, r := range raw {
		parsed, err := urn.Parse(r)
		if err != nil {
			return nil, pipeline.Invalid("Unable to parse URN: '%s'", r)
		}
		n, err := urn.Prepare(parsed, country)
		if err != nil {
			return nil, pipeline.Invalid("Invalid URN: '%s'", r)
		}
		out = append(out, n)
	}
	return out, nil
}

// PreparePhones normalizes tel addresses given as bare phone numbers. Each must be a possible number for country.
func PreparePhones(phones []urn.URN, country string) ([]urn.URN, error) {
	out := make([]urn.URN, 0, len(phones))
	for _, p := range phones {
		e164, err := urn.ParsePhone(p.Path, country)
		if err != nil {
			return nil, pipeline.Invalid("Invalid phone number: '%s'", p.Path)
		}
		out = append(out, urn.NewTel(e164))
	}
	return out, nil
}

// GetOrCreateByURNs returns the active contact that owns any of urns, or a new contact when none does. Unowned
// addresses, and those left behind by deleted contacts, are attached to the contact, the first with the highest priority. Because every address row is
// got-or-created under a unique key and locked, concurrent calls for the same address converge on one contact.
func GetOrCreateByURNs(ctx context.Context, env *write.Env, urns []urn.URN) (*domain.Contact, []*domain.ContactURN, error) {
	rows := make([]*domain.ContactURN, 0, len(urns))
	var contact *domain.Contact
	for _, u := range urns {
		row, err := env.Store.URNs().GetOrCreate(ctx, env.OrgID(), u)
		if err != nil {
			return nil, nil, fmt.Errorf("get or create urn: %w", err)
		}
		rows = append(rows, row)
		if contact == nil && row.ContactID != nil {
			c, err := env.Store.Contacts().GetByID(ctx, env.OrgID(), *row.ContactID)
			if err != nil {
				return nil, nil, fmt.Errorf("load urn owner: %w", err)
			}
			if c == nil {
				// owner was deleted, the address goes to whichever contact claims it now
				row.ContactID = nil
			}
			contact = c
		}
	}

	if contact == nil {
		contact = &domain.Contact{
			UUID:       uuid.NewString(),
			OrgID:      env.OrgID(),
			IsActive:   true,
			CreatedBy:  env.UserID,
			ModifiedBy: env.UserID,
			CreatedAt:  env.Now,
			ModifiedAt: env.Now,
		}
		if err := env.Store.Contacts().Create(ctx, contact); err != nil {
			return nil, nil, fmt.Errorf("create contact: %w", err)
		}
	}

	for i, row := range rows {
		if row.ContactID != nil {
			continue
		}
		priority := domain.DefaultPriority + len(rows) - i
		if err := env.Store.URNs().Assign(ctx, row.ID, contact.ID, priority); err != nil {
			return nil, nil, fmt.Errorf("assign urn: %w", err)
		}
		id := contact.ID
		row.ContactID, row.Priority = &id, priority
	}
	return contact, rows, nil
}

// UpdateURNs makes urns the complete address list of contact, in priority order. Addresses no longer listed
// are detached, not deleted, so they resolve to a new contact if used again.
func UpdateURNs(ctx context.Context, env *write.Env, contact *domain.Contact, urns []urn.URN) error {
	keep := make(map[int64]bool, len(urns))
	for i, u := range urns {
		row, err := env.Store.URNs().GetOrCreate(ctx, env.OrgID(), u)
		if err != nil {
			return fmt.Errorf("get or create urn: %w", err)
		}
		if err := env.Store.URNs().Assign(ctx, row.ID, contact.ID, domain.DefaultPriority+len(urns)-i); err != nil {
			return fmt.Errorf("assign urn: %w", err)
		}
		keep[row.ID] = true
	}

	current, err := env.Store.URNs().ListByContact(ctx, contact.ID)
	if err != nil {
		return fmt.Errorf("list contact urns: %w", err)
	}
	for _, row := range current {
		if keep[row.ID] {
			continue
		}
		if err := env.Store.URNs().Detach(ctx, row.ID); err != nil {
			return fmt.Errorf("detach urn: %w", err)
		}
	}
	return nil
}

// UpdateGroups makes groups the complete group list of contact.
func UpdateGroups(ctx context.Context, env *write.Env, contact *domain.Contact, groups []*domain.Group) error {
	want := make(map[int64]bool, len(groups))
	for _, g := range groups {
		want[g.ID] = true
	}
	current, err := env.Store.Contacts().GroupIDs(ctx, contact.ID)
	if err != nil {
		return fmt.Errorf("list contact groups: %w", err)
	}
	have := make(map[int64]bool, len(current))
	for _, id := range current {
		have[id] = true
		if !want[id] {
			if err := env.Store.Contacts().RemoveFromGroup(ctx, contact.ID, id); err != nil {
				return fmt.Errorf("remove from group: %w", err)
			}
		}
	}
	for _, g := range groups {
		if have[g.ID] {
			continue
		}
		if err := env.Store.Contacts().AddToGroup(ctx, contact.ID, g.ID); err != nil {
			return fmt.Errorf("add to group: %w", err)
		}
		have[g.ID] = true
	}
	return nil
}

// GetOrCreateGroup returns the active group named exactly name, creating it when missing.
func GetOrCreateGroup(ctx context.Context, env *write.Env, name string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	g, err := env.Resolve.GroupByName(ctx, name)
	if err != nil || g != nil {
		return g, err
	}
	g = &domain.Group{
		UUID:      uuid.NewString(),
		OrgID:     env.OrgID(),
		Name:      name,
		IsActive:  true,
		CreatedBy: env.UserID,
		CreatedAt: env.Now,
	}
	if err := env.Store.Groups().Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// GetOrCreateFieldByLabel returns the field labelled label, else the field with the key derived from it, else
// a new text field.
func GetOrCreateFieldByLabel(ctx context.Context, env *write.Env, label string) (*domain.ContactField, error) {
	f, err := env.Store.Fields().GetByLabel(ctx, env.OrgID(), label)
	if err != nil || f != nil {
		return f, err
	}
	key := domain.MakeKey(label)
	if f, err = env.Store.Fields().GetByKey(ctx, env.OrgID(), key); err != nil || f != nil {
		return f, err
	}
	if !domain.IsValidKey(key) {
		return nil, pipeline.Invalid("Field key '%s' is invalid or reserved", key)
	}
	f = &domain.ContactField{
		OrgID:     env.OrgID(),
		Key:       key,
		Label:     label,
		ValueType: domain.ValueTypeText,
		IsActive:  true,
		CreatedBy: env.UserID,
		CreatedAt: env.Now,
	}
	if err := env.Store.Fields().Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create field: %w", err)
	}
	return f, nil
}

// SetField stores raw as the value of field for contact, parsed by the field's value type. An empty raw value
// clears it.
func SetField(ctx context.Context, env *write.Env, contact *domain.Contact, field *domain.ContactField, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return env.Store.Contacts().ClearValue(ctx, contact.ID, field.ID)
	}
	v := domain.ParseValue(field.ValueType, raw)
	v.ContactID, v.FieldID = contact.ID, field.ID
	return env.Store.Contacts().SetValue(ctx, &v)
}
