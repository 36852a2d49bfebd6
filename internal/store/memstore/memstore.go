// Package memstore is an in-memory store.Transactor for tests and local runs. A transaction snapshots every
// table and restores the snapshot when the unit of work fails.
package memstore

import (
	"context"
	"sort"
	"sync"

	campaigndomain "tenant-messaging-api/backend/internal/campaign/domain"
	campaignrepo "tenant-messaging-api/backend/internal/campaign/repository"
	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	channelrepo "tenant-messaging-api/backend/internal/channel/repository"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	contactrepo "tenant-messaging-api/backend/internal/contact/repository"
	flowdomain "tenant-messaging-api/backend/internal/flow/domain"
	flowrepo "tenant-messaging-api/backend/internal/flow/repository"
	msgdomain "tenant-messaging-api/backend/internal/msg/domain"
	msgrepo "tenant-messaging-api/backend/internal/msg/repository"
	orgdomain "tenant-messaging-api/backend/internal/organization/domain"
	orgrepo "tenant-messaging-api/backend/internal/organization/repository"
	"tenant-messaging-api/backend/internal/store"
)

type pair struct{ a, b int64 }

type tables struct {
	orgs       map[string]orgdomain.Org
	contacts   map[int64]contactdomain.Contact
	urns       map[int64]contactdomain.ContactURN
	groups     map[int64]contactdomain.Group
	members    map[pair]bool // group, contact
	fields     map[int64]contactdomain.ContactField
	values     map[pair]contactdomain.Value // contact, field
	campaigns  map[int64]campaigndomain.Campaign
	events     map[int64]campaigndomain.Event
	flows      map[int64]flowdomain.Flow
	runs       map[int64]flowdomain.Run
	broadcasts map[int64]msgdomain.Broadcast
	msgs       map[int64]msgdomain.Msg
	msgLabels  map[pair]bool // msg, label
	labels     map[int64]msgdomain.Label
	channels   map[int64]channeldomain.Channel
}

func newTables() *tables {
	return &tables{
		orgs:       map[string]orgdomain.Org{},
		contacts:   map[int64]contactdomain.Contact{},
		urns:       map[int64]contactdomain.ContactURN{},
		groups:     map[int64]contactdomain.Group{},
		members:    map[pair]bool{},
		fields:     map[int64]contactdomain.ContactField{},
		values:     map[pair]contactdomain.Value{},
		campaigns:  map[int64]campaigndomain.Campaign{},
		events:     map[int64]campaigndomain.Event{},
		flows:      map[int64]flowdomain.Flow{},
		runs:       map[int64]flowdomain.Run{},
		broadcasts: map[int64]msgdomain.Broadcast{},
		msgs:       map[int64]msgdomain.Msg{},
		msgLabels:  map[pair]bool{},
		labels:     map[int64]msgdomain.Label{},
		channels:   map[int64]channeldomain.Channel{},
	}
}

// clone copies every table. Slice and map fields of rows are copied too, so a restored snapshot never shares
// state with rows written after it was taken.
func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.orgs {
		v.Languages = append([]string(nil), v.Languages...)
		c.orgs[k] = v
	}
	for k, v := range t.contacts {
		c.contacts[k] = v
	}
	for k, v := range t.urns {
		c.urns[k] = copyURN(v)
	}
	for k, v := range t.groups {
		c.groups[k] = v
	}
	for k, v := range t.members {
		c.members[k] = v
	}
	for k, v := range t.fields {
		c.fields[k] = v
	}
	for k, v := range t.values {
		c.values[k] = v
	}
	for k, v := range t.campaigns {
		c.campaigns[k] = v
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.flows {
		c.flows[k] = copyFlow(v)
	}
	for k, v := range t.runs {
		c.runs[k] = copyRun(v)
	}
	for k, v := range t.broadcasts {
		c.broadcasts[k] = copyBroadcast(v)
	}
	for k, v := range t.msgs {
		c.msgs[k] = v
	}
	for k, v := range t.msgLabels {
		c.msgLabels[k] = v
	}
	for k, v := range t.labels {
		c.labels[k] = v
	}
	for k, v := range t.channels {
		c.channels[k] = v
	}
	return c
}

// Store implements store.Transactor in memory. Transactions are serialized.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	t      *tables
	nextID int64
}

var _ store.Transactor = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{t: newTables()}
}

// WithinTx runs fn against the store. When fn fails every table is restored to its state before the call.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.t.clone()
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Orgs() orgrepo.Repository                   { return orgRepo{s} }
func (s *Store) Contacts() contactrepo.ContactRepository    { return contactRepo{s} }
func (s *Store) URNs() contactrepo.URNRepository            { return urnRepo{s} }
func (s *Store) Groups() contactrepo.GroupRepository        { return groupRepo{s} }
func (s *Store) Fields() contactrepo.FieldRepository        { return fieldRepo{s} }
func (s *Store) Campaigns() campaignrepo.CampaignRepository { return campaignRepo{s} }
func (s *Store) Events() campaignrepo.EventRepository       { return eventRepo{s} }
func (s *Store) Flows() flowrepo.FlowRepository             { return flowRepo{s} }
func (s *Store) Runs() flowrepo.RunRepository               { return runRepo{s} }
func (s *Store) Broadcasts() msgrepo.BroadcastRepository    { return broadcastRepo{s} }
func (s *Store) Msgs() msgrepo.MsgRepository                { return msgRepo{s} }
func (s *Store) Labels() msgrepo.LabelRepository            { return labelRepo{s} }
func (s *Store) Channels() channelrepo.Repository           { return channelRepo{s} }

// AddChannel inserts a channel row, setting its ID. Channels are registered by relayers outside this API.
func (s *Store) AddChannel(c *channeldomain.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.t.channels[c.ID] = *c
}

// Counts is the number of rows per table.
type Counts struct {
	Contacts, URNs, Groups, Fields, Campaigns, Events, Flows, Runs, Broadcasts, Msgs, Labels, MsgLabels int
}

// Counts returns the current row counts.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Contacts: len(s.t.contacts), URNs: len(s.t.urns), Groups: len(s.t.groups), Fields: len(s.t.fields),
		Campaigns: len(s.t.campaigns), Events: len(s.t.events), Flows: len(s.t.flows), Runs: len(s.t.runs),
		Broadcasts: len(s.t.broadcasts), Msgs: len(s.t.msgs), Labels: len(s.t.labels), MsgLabels: len(s.t.msgLabels),
	}
}

// ContactValue returns the stored value of fieldID for contactID.
func (s *Store) ContactValue(contactID, fieldID int64) (contactdomain.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.t.values[pair{contactID, fieldID}]
	return v, ok
}

// AllMsgs returns every message ordered by id.
func (s *Store) AllMsgs() []*msgdomain.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*msgdomain.Msg, 0, len(s.t.msgs))
	for _, id := range sortedKeys(s.t.msgs) {
		m := s.t.msgs[id]
		out = append(out, &m)
	}
	return out
}

// AllBroadcasts returns every broadcast ordered by id.
func (s *Store) AllBroadcasts() []*msgdomain.Broadcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*msgdomain.Broadcast, 0, len(s.t.broadcasts))
	for _, id := range sortedKeys(s.t.broadcasts) {
		b := copyBroadcast(s.t.broadcasts[id])
		out = append(out, &b)
	}
	return out
}

// AllRuns returns every flow run ordered by id.
func (s *Store) AllRuns() []*flowdomain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*flowdomain.Run, 0, len(s.t.runs))
	for _, id := range sortedKeys(s.t.runs) {
		r := copyRun(s.t.runs[id])
		out = append(out, &r)
	}
	return out
}

// FlowByID returns the flow with id regardless of org and status.
func (s *Store) FlowByID(id int64) (*flowdomain.Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.t.flows[id]
	if !ok {
		return nil, false
	}
	f = copyFlow(f)
	return &f, true
}

type orgRepo struct{ s *Store }

func (r orgRepo) GetOrganizationByID(_ context.Context, id string) (*orgdomain.Org, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.t.orgs[id]
	if !ok {
		return nil, nil
	}
	o.Languages = append([]string(nil), o.Languages...)
	return &o, nil
}

func (r orgRepo) CreateOrganization(_ context.Context, o *orgdomain.Org) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *o
	c.Languages = append([]string(nil), o.Languages...)
	r.s.t.orgs[o.ID] = c
	return nil
}

func (r orgRepo) UpdateOrganization(ctx context.Context, o *orgdomain.Org) error {
	return r.CreateOrganization(ctx, o)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func copyURN(u contactdomain.ContactURN) contactdomain.ContactURN {
	if u.ContactID != nil {
		id := *u.ContactID
		u.ContactID = &id
	}
	return u
}

func copyFlow(f flowdomain.Flow) flowdomain.Flow {
	f.Definition = append([]byte(nil), f.Definition...)
	return f
}

func copyRun(r flowdomain.Run) flowdomain.Run {
	extra := make(map[string]string, len(r.Extra))
	for k, v := range r.Extra {
		extra[k] = v
	}
	r.Extra = extra
	return r
}

func copyBroadcast(b msgdomain.Broadcast) msgdomain.Broadcast {
	b.ContactIDs = append([]int64(nil), b.ContactIDs...)
	b.GroupIDs = append([]int64(nil), b.GroupIDs...)
	b.URNs = append([]string(nil), b.URNs...)
	if b.ChannelID != nil {
		id := *b.ChannelID
		b.ChannelID = &id
	}
	return b
}
