// Package store groups the repositories a write needs behind one transactional unit.
package store

import (
	"context"
	"database/sql"

	campaignrepo "tenant-messaging-api/backend/internal/campaign/repository"
	channelrepo "tenant-messaging-api/backend/internal/channel/repository"
	contactrepo "tenant-messaging-api/backend/internal/contact/repository"
	"tenant-messaging-api/backend/internal/db"
	flowrepo "tenant-messaging-api/backend/internal/flow/repository"
	msgrepo "tenant-messaging-api/backend/internal/msg/repository"
	orgrepo "tenant-messaging-api/backend/internal/organization/repository"
)

// Store exposes every repository over one connection or transaction.
type Store interface {
	Orgs() orgrepo.Repository
	Contacts() contactrepo.ContactRepository
	URNs() contactrepo.URNRepository
	Groups() contactrepo.GroupRepository
	Fields() contactrepo.FieldRepository
	Campaigns() campaignrepo.CampaignRepository
	Events() campaignrepo.EventRepository
	Flows() flowrepo.FlowRepository
	Runs() flowrepo.RunRepository
	Broadcasts() msgrepo.BroadcastRepository
	Msgs() msgrepo.MsgRepository
	Labels() msgrepo.LabelRepository
	Channels() channelrepo.Repository
}

// Transactor runs a unit of work atomically. fn receives a Store bound to the transaction; when fn returns an
// error nothing it wrote is kept.
type Transactor interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error
}

// Postgres is the database-backed Transactor.
type Postgres struct {
	conn *sql.DB
	repos
}

type repos struct {
	orgs       orgrepo.Repository
	contacts   contactrepo.ContactRepository
	urns       contactrepo.URNRepository
	groups     contactrepo.GroupRepository
	fields     contactrepo.FieldRepository
	campaigns  campaignrepo.CampaignRepository
	events     campaignrepo.EventRepository
	flows      flowrepo.FlowRepository
	runs       flowrepo.RunRepository
	broadcasts msgrepo.BroadcastRepository
	msgs       msgrepo.MsgRepository
	labels     msgrepo.LabelRepository
	channels   channelrepo.Repository
}

func newRepos(q db.DBTX) repos {
	return repos{
		orgs:       orgrepo.NewPostgresRepository(q),
		contacts:   contactrepo.NewPostgresRepository(q),
		urns:       contactrepo.NewPostgresURNRepository(q),
		groups:     contactrepo.NewPostgresGroupRepository(q),
		fields:     contactrepo.NewPostgresFieldRepository(q),
		campaigns:  campaignrepo.NewPostgresRepository(q),
		events:     campaignrepo.NewPostgresEventRepository(q),
		flows:      flowrepo.NewPostgresRepository(q),
		runs:       flowrepo.NewPostgresRunRepository(q),
		broadcasts: msgrepo.NewPostgresBroadcastRepository(q),
		msgs:       msgrepo.NewPostgresMsgRepository(q),
		labels:     msgrepo.NewPostgresLabelRepository(q),
		channels:   channelrepo.NewPostgresRepository(q),
	}
}

// NewPostgres returns a Store over conn.
func NewPostgres(conn *sql.DB) *Postgres {
	return &Postgres{conn: conn, repos: newRepos(conn)}
}

// WithinTx runs fn in a read-committed transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	return db.WithTx(ctx, p.conn, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx db.DBTX) error {
		r := newRepos(tx)
		return fn(ctx, &r)
	})
}

func (r *repos) Orgs() orgrepo.Repository                   { return r.orgs }
func (r *repos) Contacts() contactrepo.ContactRepository    { return r.contacts }
func (r *repos) URNs() contactrepo.URNRepository            { return r.urns }
func (r *repos) Groups() contactrepo.GroupRepository        { return r.groups }
func (r *repos) Fields() contactrepo.FieldRepository        { return r.fields }
func (r *repos) Campaigns() campaignrepo.CampaignRepository { return r.campaigns }
func (r *repos) Events() campaignrepo.EventRepository       { return r.events }
func (r *repos) Flows() flowrepo.FlowRepository             { return r.flows }
func (r *repos) Runs() flowrepo.RunRepository               { return r.runs }
func (r *repos) Broadcasts() msgrepo.BroadcastRepository    { return r.broadcasts }
func (r *repos) Msgs() msgrepo.MsgRepository                { return r.msgs }
func (r *repos) Labels() msgrepo.LabelRepository            { return r.labels }
func (r *repos) Channels() channelrepo.Repository           { return r.channels }
