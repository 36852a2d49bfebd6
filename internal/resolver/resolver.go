// Package resolver maps request identifiers to live entities of one org.
//
// Every lookup filters by org first and returns only active rows, so a row of another org and a missing row
// produce the same not-found failure. Failures are *pipeline.FieldError values of kind KindNotFound; storage
// failures are returned as plain errors.
package resolver

import (
	"context"
	"fmt"

	campaigndomain "tenant-messaging-api/backend/internal/campaign/domain"
	channeldomain "tenant-messaging-api/backend/internal/channel/domain"
	contactdomain "tenant-messaging-api/backend/internal/contact/domain"
	flowdomain "tenant-messaging-api/backend/internal/flow/domain"
	msgdomain "tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/store"
)

// ErrNotFound matches every not-found failure returned by a Resolver.
var ErrNotFound = pipeline.ErrNotFound

// Resolver resolves identifiers within one org.
type Resolver struct {
	st    store.Store
	orgID string
}

// New returns a resolver reading st on behalf of orgID.
func New(st store.Store, orgID string) *Resolver {
	return &Resolver{st: st, orgID: orgID}
}

// OrgID returns the org every lookup is scoped to.
func (r *Resolver) OrgID() string { return r.orgID }

// Contact resolves a contact by UUID.
func (r *Resolver) Contact(ctx context.Context, uuid string) (*contactdomain.Contact, error) {
	c, err := r.st.Contacts().GetByUUID(ctx, r.orgID, uuid)
	if err != nil {
		return nil, fmt.Errorf("resolve contact: %w", err)
	}
	if c == nil {
		return nil, pipeline.NotFound("Unable to find contact with uuid: %s", uuid)
	}
	return c, nil
}

// Contacts resolves every UUID in order and fails on the first miss.
func (r *Resolver) Contacts(ctx context.Context, uuids []string) ([]*contactdomain.Contact, error) {
	out := make([]*contactdomain.Contact, 0, len(uuids))
	for _, u := range uuids {
		c, err := r.Contact(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Group resolves a contact group by UUID.
func (r *Resolver) Group(ctx context.Context, uuid string) (*contactdomain.Group, error) {
	g, err := r.st.Groups().GetByUUID(ctx, r.orgID, uuid)
	if err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}
	if g == nil {
		return nil, pipeline.NotFound("Unable to find contact group with uuid: %s", uuid)
	}
	return g, nil
}

// Groups resolves every UUID in order and fails on the first miss.
func (r *Resolver) Groups(ctx context.Context, uuids []string) ([]*contactdomain.Group, error) {
	out := make([]*contactdomain.Group, 0, len(uuids))
	for _, u := range uuids {
		g, err := r.Group(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// GroupByName returns the active group with exactly name, or nil. Names are a legacy key and a miss is not an
// error: callers decide whether to create the group.
func (r *Resolver) GroupByName(ctx context.Context, name string) (*contactdomain.Group, error) {
	g, err := r.st.Groups().GetByName(ctx, r.orgID, name)
	if err != nil {
		return nil, fmt.Errorf("resolve group by name: %w", err)
	}
	return g, nil
}

// Campaign resolves an active, unarchived campaign by UUID or legacy id.
func (r *Resolver) Campaign(ctx context.Context, ref pipeline.Reference) (*campaigndomain.Campaign, error) {
	var (
		c   *campaigndomain.Campaign
		err error
	)
	if ref.IsID() {
		c, err = r.st.Campaigns().GetByID(ctx, r.orgID, ref.ID)
	} else {
		c, err = r.st.Campaigns().GetByUUID(ctx, r.orgID, ref.UUID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve campaign: %w", err)
	}
	if c == nil {
		if ref.IsID() {
			return nil, pipeline.NotFound("No campaign with id %d", ref.ID)
		}
		return nil, pipeline.NotFound("No campaign with UUID %s", ref.UUID)
	}
	return c, nil
}

// Event resolves an active campaign event by UUID or legacy id.
func (r *Resolver) Event(ctx context.Context, ref pipeline.Reference) (*campaigndomain.Event, error) {
	var (
		e   *campaigndomain.Event
		err error
	)
	if ref.IsID() {
		e, err = r.st.Events().GetByID(ctx, r.orgID, ref.ID)
	} else {
		e, err = r.st.Events().GetByUUID(ctx, r.orgID, ref.UUID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve event: %w", err)
	}
	if e == nil {
		if ref.IsID() {
			return nil, pipeline.NotFound("No event with id %d", ref.ID)
		}
		return nil, pipeline.NotFound("No event with UUID %s", ref.UUID)
	}
	return e, nil
}

// Flow resolves an active flow by UUID or legacy id. Archived flows resolve; starting one is a domain rule.
func (r *Resolver) Flow(ctx context.Context, ref pipeline.Reference) (*flowdomain.Flow, error) {
	var (
		f   *flowdomain.Flow
		err error
	)
	if ref.IsID() {
		f, err = r.st.Flows().GetByID(ctx, r.orgID, ref.ID)
	} else {
		f, err = r.st.Flows().GetByUUID(ctx, r.orgID, ref.UUID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve flow: %w", err)
	}
	if f == nil {
		if ref.IsID() {
			return nil, pipeline.NotFound("No flow with id %d", ref.ID)
		}
		return nil, pipeline.NotFound("No flow with UUID %s", ref.UUID)
	}
	return f, nil
}

// Label resolves a message label by UUID.
func (r *Resolver) Label(ctx context.Context, uuid string) (*msgdomain.Label, error) {
	l, err := r.st.Labels().GetByUUID(ctx, r.orgID, uuid)
	if err != nil {
		return nil, fmt.Errorf("resolve label: %w", err)
	}
	if l == nil {
		return nil, pipeline.NotFound("No such label with UUID: %s", uuid)
	}
	return l, nil
}

// Channel resolves an active channel of the org by UUID or legacy id.
func (r *Resolver) Channel(ctx context.Context, ref pipeline.Reference) (*channeldomain.Channel, error) {
	var (
		c   *channeldomain.Channel
		err error
	)
	if ref.IsID() {
		c, err = r.st.Channels().GetByID(ctx, r.orgID, ref.ID)
	} else {
		c, err = r.st.Channels().GetByUUID(ctx, r.orgID, ref.UUID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}
	if c == nil {
		return nil, pipeline.NotFound("Invalid pk '%s' - object does not exist.", ref)
	}
	return c, nil
}

// SendChannel returns the org's most recently seen channel able to send on scheme, or nil.
func (r *Resolver) SendChannel(ctx context.Context, scheme string) (*channeldomain.Channel, error) {
	c, err := r.st.Channels().GetSendChannel(ctx, r.orgID, scheme)
	if err != nil {
		return nil, fmt.Errorf("resolve send channel: %w", err)
	}
	return c, nil
}

// DefaultChannel returns the org's most recently seen active channel.
func (r *Resolver) DefaultChannel(ctx context.Context) (*channeldomain.Channel, error) {
	c, err := r.st.Channels().MostRecent(ctx, r.orgID)
	if err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}
	if c == nil {
		return nil, pipeline.NotFound("There are no channels for this organization.")
	}
	return c, nil
}
