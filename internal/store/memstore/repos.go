package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"

	campaigndomain "tenant-messaging-api/backend/internal/campaign/domain"
	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	flowdomain "tenant-messaging-api/backend/internal/flow/domain"
	msgdomain "tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/urn"
)

type contactRepo struct{ s *Store }

func (r contactRepo) find(match func(c contactdomain.Contact) bool) *contactdomain.Contact {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.contacts) {
		c := r.s.t.contacts[id]
		if c.IsActive && match(c) {
			return &c
		}
	}
	return nil
}

func (r contactRepo) GetByUUID(_ context.Context, orgID, uuid string) (*contactdomain.Contact, error) {
	return r.find(func(c contactdomain.Contact) bool { return c.OrgID == orgID && c.UUID == uuid }), nil
}

func (r contactRepo) GetByID(_ context.Context, orgID string, id int64) (*contactdomain.Contact, error) {
	return r.find(func(c contactdomain.Contact) bool { return c.OrgID == orgID && c.ID == id }), nil
}

func (r contactRepo) ListByGroups(_ context.Context, orgID string, groupIDs []int64) ([]*contactdomain.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*contactdomain.Contact
	for _, id := range sortedKeys(r.s.t.contacts) {
		c := r.s.t.contacts[id]
		if c.OrgID != orgID || !c.IsActive {
			continue
		}
		for _, g := range groupIDs {
			if r.s.t.members[pair{g, c.ID}] {
				out = append(out, &c)
				break
			}
		}
	}
	return out, nil
}

func (r contactRepo) Create(_ context.Context, c *contactdomain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	r.s.t.contacts[c.ID] = *c
	return nil
}

func (r contactRepo) Update(_ context.Context, c *contactdomain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.contacts[c.ID]
	if !ok || cur.OrgID != c.OrgID {
		return nil
	}
	cur.Name, cur.Language, cur.IsActive = c.Name, c.Language, c.IsActive
	cur.ModifiedBy, cur.ModifiedAt = c.ModifiedBy, c.ModifiedAt
	r.s.t.contacts[c.ID] = cur
	return nil
}

func (r contactRepo) SetValue(_ context.Context, v *contactdomain.Value) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.values[pair{v.ContactID, v.FieldID}] = *v
	return nil
}

func (r contactRepo) ClearValue(_ context.Context, contactID, fieldID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.t.values, pair{contactID, fieldID})
	return nil
}

func (r contactRepo) GroupIDs(_ context.Context, contactID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for p := range r.s.t.members {
		if p.b == contactID {
			ids = append(ids, p.a)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r contactRepo) AddToGroup(_ context.Context, contactID, groupID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.members[pair{groupID, contactID}] = true
	return nil
}

func (r contactRepo) RemoveFromGroup(_ context.Context, contactID, groupID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.t.members, pair{groupID, contactID})
	return nil
}

type urnRepo struct{ s *Store }

func (r urnRepo) lookup(orgID, identity string) (contactdomain.ContactURN, bool) {
	for _, id := range sortedKeys(r.s.t.urns) {
		u := r.s.t.urns[id]
		if u.OrgID == orgID && u.Identity() == identity {
			return copyURN(u), true
		}
	}
	return contactdomain.ContactURN{}, false
}

func (r urnRepo) GetOrCreate(_ context.Context, orgID string, u urn.URN) (*contactdomain.ContactURN, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cu, ok := r.lookup(orgID, u.String()); ok {
		return &cu, nil
	}
	cu := contactdomain.ContactURN{ID: r.s.id(), OrgID: orgID, Scheme: u.Scheme, Path: u.Path,
		Priority: contactdomain.DefaultPriority}
	r.s.t.urns[cu.ID] = cu
	return &cu, nil
}

func (r urnRepo) GetByIdentity(_ context.Context, orgID, identity string) (*contactdomain.ContactURN, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cu, ok := r.lookup(orgID, identity); ok {
		return &cu, nil
	}
	return nil, nil
}

func (r urnRepo) ListByContact(_ context.Context, contactID int64) ([]*contactdomain.ContactURN, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*contactdomain.ContactURN
	for _, id := range sortedKeys(r.s.t.urns) {
		u := r.s.t.urns[id]
		if u.IsOwnedBy(contactID) {
			u = copyURN(u)
			out = append(out, &u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (r urnRepo) Assign(_ context.Context, urnID, contactID int64, priority int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.t.urns[urnID]
	if !ok {
		return nil
	}
	id := contactID
	u.ContactID, u.Priority = &id, priority
	r.s.t.urns[urnID] = u
	return nil
}

func (r urnRepo) Detach(_ context.Context, urnID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.t.urns[urnID]
	if !ok {
		return nil
	}
	u.ContactID = nil
	r.s.t.urns[urnID] = u
	return nil
}

type groupRepo struct{ s *Store }

func (r groupRepo) find(match func(g contactdomain.Group) bool) *contactdomain.Group {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.groups) {
		g := r.s.t.groups[id]
		if g.IsActive && match(g) {
			return &g
		}
	}
	return nil
}

func (r groupRepo) GetByUUID(_ context.Context, orgID, uuid string) (*contactdomain.Group, error) {
	return r.find(func(g contactdomain.Group) bool { return g.OrgID == orgID && g.UUID == uuid }), nil
}

func (r groupRepo) GetByID(_ context.Context, orgID string, id int64) (*contactdomain.Group, error) {
	return r.find(func(g contactdomain.Group) bool { return g.OrgID == orgID && g.ID == id }), nil
}

func (r groupRepo) GetByName(_ context.Context, orgID, name string) (*contactdomain.Group, error) {
	return r.find(func(g contactdomain.Group) bool { return g.OrgID == orgID && g.Name == name }), nil
}

func (r groupRepo) Create(_ context.Context, g *contactdomain.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g.ID = r.s.id()
	r.s.t.groups[g.ID] = *g
	return nil
}

type fieldRepo struct{ s *Store }

func (r fieldRepo) find(match func(f contactdomain.ContactField) bool) *contactdomain.ContactField {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.fields) {
		f := r.s.t.fields[id]
		if f.IsActive && match(f) {
			return &f
		}
	}
	return nil
}

func (r fieldRepo) GetByKey(_ context.Context, orgID, key string) (*contactdomain.ContactField, error) {
	return r.find(func(f contactdomain.ContactField) bool {
		return f.OrgID == orgID && strings.EqualFold(f.Key, key)
	}), nil
}

func (r fieldRepo) GetByLabel(_ context.Context, orgID, label string) (*contactdomain.ContactField, error) {
	return r.find(func(f contactdomain.ContactField) bool {
		return f.OrgID == orgID && strings.EqualFold(f.Label, label)
	}), nil
}

func (r fieldRepo) Create(_ context.Context, f *contactdomain.ContactField) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.t.fields {
		if cur.OrgID == f.OrgID && cur.Key == f.Key {
			return errors.New("duplicate key value violates unique constraint on contact_fields")
		}
	}
	f.ID = r.s.id()
	r.s.t.fields[f.ID] = *f
	return nil
}

func (r fieldRepo) Update(_ context.Context, f *contactdomain.ContactField) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.fields[f.ID]
	if !ok || cur.OrgID != f.OrgID {
		return nil
	}
	cur.Label, cur.ValueType, cur.IsActive = f.Label, f.ValueType, f.IsActive
	r.s.t.fields[f.ID] = cur
	return nil
}

type campaignRepo struct{ s *Store }

func (r campaignRepo) find(match func(c campaigndomain.Campaign) bool) *campaigndomain.Campaign {
	return r.findIn(false, match)
}

func (r campaignRepo) findIn(archived bool, match func(c campaigndomain.Campaign) bool) *campaigndomain.Campaign {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.campaigns) {
		c := r.s.t.campaigns[id]
		if c.IsActive && (archived || !c.IsArchived) && match(c) {
			return &c
		}
	}
	return nil
}

func (r campaignRepo) GetByUUID(_ context.Context, orgID, uuid string) (*campaigndomain.Campaign, error) {
	return r.find(func(c campaigndomain.Campaign) bool { return c.OrgID == orgID && c.UUID == uuid }), nil
}

func (r campaignRepo) GetByID(_ context.Context, orgID string, id int64) (*campaigndomain.Campaign, error) {
	return r.find(func(c campaigndomain.Campaign) bool { return c.OrgID == orgID && c.ID == id }), nil
}

func (r campaignRepo) GetByIDWithArchived(_ context.Context, orgID string, id int64) (*campaigndomain.Campaign, error) {
	return r.findIn(true, func(c campaigndomain.Campaign) bool { return c.OrgID == orgID && c.ID == id }), nil
}

func (r campaignRepo) Create(_ context.Context, c *campaigndomain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	r.s.t.campaigns[c.ID] = *c
	return nil
}

func (r campaignRepo) Update(_ context.Context, c *campaigndomain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.campaigns[c.ID]
	if !ok || cur.OrgID != c.OrgID {
		return nil
	}
	cur.Name, cur.GroupID, cur.IsActive, cur.IsArchived = c.Name, c.GroupID, c.IsActive, c.IsArchived
	cur.ModifiedBy, cur.ModifiedAt = c.ModifiedBy, c.ModifiedAt
	r.s.t.campaigns[c.ID] = cur
	return nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) find(match func(e campaigndomain.Event) bool) *campaigndomain.Event {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.events) {
		e := r.s.t.events[id]
		if e.IsActive && match(e) {
			return &e
		}
	}
	return nil
}

func (r eventRepo) GetByUUID(_ context.Context, orgID, uuid string) (*campaigndomain.Event, error) {
	return r.find(func(e campaigndomain.Event) bool { return e.OrgID == orgID && e.UUID == uuid }), nil
}

func (r eventRepo) GetByID(_ context.Context, orgID string, id int64) (*campaigndomain.Event, error) {
	return r.find(func(e campaigndomain.Event) bool { return e.OrgID == orgID && e.ID == id }), nil
}

func (r eventRepo) Create(_ context.Context, e *campaigndomain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	r.s.t.events[e.ID] = *e
	return nil
}

func (r eventRepo) Update(_ context.Context, e *campaigndomain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.events[e.ID]
	if !ok || cur.OrgID != e.OrgID {
		return nil
	}
	created := cur.CreatedAt
	createdBy := cur.CreatedBy
	cur = *e
	cur.CreatedAt, cur.CreatedBy = created, createdBy
	r.s.t.events[e.ID] = cur
	return nil
}

type flowRepo struct{ s *Store }

func (r flowRepo) find(match func(f flowdomain.Flow) bool) *flowdomain.Flow {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.flows) {
		f := r.s.t.flows[id]
		if f.IsActive && match(f) {
			f = copyFlow(f)
			return &f
		}
	}
	return nil
}

func (r flowRepo) GetByUUID(_ context.Context, orgID, uuid string) (*flowdomain.Flow, error) {
	return r.find(func(f flowdomain.Flow) bool { return f.OrgID == orgID && f.UUID == uuid }), nil
}

func (r flowRepo) GetByID(_ context.Context, orgID string, id int64) (*flowdomain.Flow, error) {
	return r.find(func(f flowdomain.Flow) bool { return f.OrgID == orgID && f.ID == id }), nil
}

func (r flowRepo) Create(_ context.Context, f *flowdomain.Flow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.ID = r.s.id()
	r.s.t.flows[f.ID] = copyFlow(*f)
	return nil
}

func (r flowRepo) Update(_ context.Context, f *flowdomain.Flow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.flows[f.ID]
	if !ok || cur.OrgID != f.OrgID {
		return nil
	}
	cur.Name, cur.FlowType, cur.Definition, cur.Version = f.Name, f.FlowType, append([]byte(nil), f.Definition...), f.Version
	cur.IsArchived, cur.IsActive, cur.ModifiedBy, cur.ModifiedAt = f.IsArchived, f.IsActive, f.ModifiedBy, f.ModifiedAt
	r.s.t.flows[f.ID] = cur
	return nil
}

type runRepo struct{ s *Store }

func (r runRepo) Create(_ context.Context, run *flowdomain.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run.ID = r.s.id()
	r.s.t.runs[run.ID] = copyRun(*run)
	return nil
}

func (r runRepo) ContactsWithRuns(_ context.Context, flowID int64, contactIDs []int64) (map[int64]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int64]bool, len(contactIDs))
	for _, id := range contactIDs {
		wanted[id] = true
	}
	out := map[int64]bool{}
	for _, run := range r.s.t.runs {
		if run.FlowID == flowID && wanted[run.ContactID] {
			out[run.ContactID] = true
		}
	}
	return out, nil
}

type broadcastRepo struct{ s *Store }

func (r broadcastRepo) Create(_ context.Context, b *msgdomain.Broadcast) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ID = r.s.id()
	r.s.t.broadcasts[b.ID] = copyBroadcast(*b)
	return nil
}

type msgRepo struct{ s *Store }

func (r msgRepo) Create(_ context.Context, m *msgdomain.Msg) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.id()
	r.s.t.msgs[m.ID] = *m
	return nil
}

func (r msgRepo) ListForAction(_ context.Context, orgID string, direction msgdomain.Direction, ids []int64) ([]*msgdomain.Msg, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*msgdomain.Msg
	for _, id := range sortedKeys(r.s.t.msgs) {
		m := r.s.t.msgs[id]
		if wanted[id] && m.OrgID == orgID && m.Direction == direction {
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r msgRepo) SetVisibility(_ context.Context, msgID int64, v msgdomain.Visibility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.t.msgs[msgID]; ok {
		m.Visibility = v
		r.s.t.msgs[msgID] = m
	}
	return nil
}

func (r msgRepo) LabelIDs(_ context.Context, msgID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for p := range r.s.t.msgLabels {
		if p.a == msgID {
			ids = append(ids, p.b)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r msgRepo) AddLabel(_ context.Context, msgID, labelID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pair{msgID, labelID}
	if r.s.t.msgLabels[k] {
		return false, nil
	}
	r.s.t.msgLabels[k] = true
	return true, nil
}

func (r msgRepo) RemoveLabel(_ context.Context, msgID, labelID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pair{msgID, labelID}
	if !r.s.t.msgLabels[k] {
		return false, nil
	}
	delete(r.s.t.msgLabels, k)
	return true, nil
}

type labelRepo struct{ s *Store }

func (r labelRepo) find(match func(l msgdomain.Label) bool) *msgdomain.Label {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedKeys(r.s.t.labels) {
		l := r.s.t.labels[id]
		if l.IsActive && match(l) {
			return &l
		}
	}
	return nil
}

func (r labelRepo) GetByUUID(_ context.Context, orgID, uuid string) (*msgdomain.Label, error) {
	return r.find(func(l msgdomain.Label) bool { return l.OrgID == orgID && l.UUID == uuid }), nil
}

func (r labelRepo) GetByName(_ context.Context, orgID, name string) (*msgdomain.Label, error) {
	return r.find(func(l msgdomain.Label) bool { return l.OrgID == orgID && strings.EqualFold(l.Name, name) }), nil
}

func (r labelRepo) Create(_ context.Context, l *msgdomain.Label) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.t.labels {
		if cur.IsActive && cur.OrgID == l.OrgID && strings.EqualFold(cur.Name, l.Name) {
			return errors.New("duplicate key value violates unique constraint on labels")
		}
	}
	l.ID = r.s.id()
	r.s.t.labels[l.ID] = *l
	return nil
}

func (r labelRepo) Update(_ context.Context, l *msgdomain.Label) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.labels[l.ID]
	if !ok || cur.OrgID != l.OrgID {
		return nil
	}
	cur.Name, cur.IsActive = l.Name, l.IsActive
	r.s.t.labels[l.ID] = cur
	return nil
}

func (r labelRepo) AdjustVisibleCount(_ context.Context, labelID int64, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.t.labels[labelID]; ok {
		l.VisibleCount += delta
		r.s.t.labels[labelID] = l
	}
	return nil
}

// LabelByID returns the label with id regardless of status.
func (s *Store) LabelByID(id int64) (*msgdomain.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.t.labels[id]
	return &l, ok
}

type channelRepo struct{ s *Store }

func (r channelRepo) best(match func(c channeldomain.Channel) bool) *channeldomain.Channel {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *channeldomain.Channel
	for _, id := range sortedKeys(r.s.t.channels) {
		c := r.s.t.channels[id]
		if !c.IsActive || !match(c) {
			continue
		}
		if best == nil || !c.LastSeen.Before(best.LastSeen) {
			best = &c
		}
	}
	return best
}

func (r channelRepo) GetByID(_ context.Context, orgID string, id int64) (*channeldomain.Channel, error) {
	return r.best(func(c channeldomain.Channel) bool { return c.OrgID == orgID && c.ID == id }), nil
}

func (r channelRepo) GetByUUID(_ context.Context, orgID, uuid string) (*channeldomain.Channel, error) {
	return r.best(func(c channeldomain.Channel) bool { return c.OrgID == orgID && c.UUID == uuid }), nil
}

func (r channelRepo) GetByClaimCode(_ context.Context, code string) (*channeldomain.Channel, error) {
	return r.best(func(c channeldomain.Channel) bool { return !c.IsClaimed() && c.ClaimCode == code }), nil
}

func (r channelRepo) GetSendChannel(_ context.Context, orgID, scheme string) (*channeldomain.Channel, error) {
	return r.best(func(c channeldomain.Channel) bool {
		return c.OrgID == orgID && c.Scheme == scheme && c.CanSend()
	}), nil
}

func (r channelRepo) MostRecent(_ context.Context, orgID string) (*channeldomain.Channel, error) {
	return r.best(func(c channeldomain.Channel) bool { return c.OrgID == orgID }), nil
}

func (r channelRepo) Claim(_ context.Context, c *channeldomain.Channel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.channels[c.ID]
	if !ok || cur.IsClaimed() {
		return errors.New("channel already claimed")
	}
	cur.OrgID, cur.Name, cur.Address, cur.ClaimCode = c.OrgID, c.Name, c.Address, ""
	cur.ClaimedBy, cur.ModifiedAt = c.ClaimedBy, c.ModifiedAt
	r.s.t.channels[c.ID] = cur
	return nil
}
