package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/campaign/domain"
	"tenant-messaging-api/backend/internal/db"
)

const (
	campaignColumns = `id, uuid, org_id, name, group_id, is_active, is_archived, created_by, modified_by, created_at, modified_at`
	eventColumns    = `id, uuid, org_id, campaign_id, event_type, flow_id, relative_to_id, "offset", unit, delivery_hour, message,
		is_active, created_by, modified_by, created_at, modified_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a campaign repository that uses the given db for persistence.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetByUUID returns the active, unarchived campaign for uuid in orgID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Campaign, error) {
	return scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE org_id = $1 AND uuid = $2 AND is_active AND NOT is_archived`, orgID, uuid))
}

// GetByID returns the active, unarchived campaign for id in orgID, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID string, id int64) (*domain.Campaign, error) {
	return scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE org_id = $1 AND id = $2 AND is_active AND NOT is_archived`, orgID, id))
}

// GetByIDWithArchived returns the active campaign for id in orgID whether or not it is archived, or nil if not found.
func (r *PostgresRepository) GetByIDWithArchived(ctx context.Context, orgID string, id int64) (*domain.Campaign, error) {
	return scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE org_id = $1 AND id = $2 AND is_active`, orgID, id))
}

// Create inserts c and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Campaign) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO campaigns (uuid, org_id, name, group_id, is_active, is_archived, created_by, modified_by, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		c.UUID, c.OrgID, c.Name, c.GroupID, c.IsActive, c.IsArchived, c.CreatedBy, c.ModifiedBy, c.CreatedAt, c.ModifiedAt,
	).Scan(&c.ID)
}

// Update persists the mutable columns of c.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.ExecContext(ctx, `UPDATE campaigns SET name = $3, group_id = $4, is_active = $5, is_archived = $6, modified_by = $7, modified_at = $8
		WHERE org_id = $1 AND id = $2`,
		c.OrgID, c.ID, c.Name, c.GroupID, c.IsActive, c.IsArchived, c.ModifiedBy, c.ModifiedAt)
	return err
}

type PostgresEventRepository struct {
	db db.DBTX
}

// NewPostgresEventRepository returns a campaign event repository that uses the given db for persistence.
func NewPostgresEventRepository(q db.DBTX) *PostgresEventRepository {
	return &PostgresEventRepository{db: q}
}

// GetByUUID returns the active event for uuid in orgID, or nil if not found.
func (r *PostgresEventRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM campaign_events WHERE org_id = $1 AND uuid = $2 AND is_active`, orgID, uuid))
}

// GetByID returns the active event for id in orgID, or nil if not found.
func (r *PostgresEventRepository) GetByID(ctx context.Context, orgID string, id int64) (*domain.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM campaign_events WHERE org_id = $1 AND id = $2 AND is_active`, orgID, id))
}

// Create inserts e and sets its ID.
func (r *PostgresEventRepository) Create(ctx context.Context, e *domain.Event) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO campaign_events (uuid, org_id, campaign_id, event_type, flow_id, relative_to_id, "offset", unit,
		delivery_hour, message, is_active, created_by, modified_by, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		e.UUID, e.OrgID, e.CampaignID, string(e.EventType), e.FlowID, e.RelativeToID, e.Offset, string(e.Unit),
		e.DeliveryHour, e.Message, e.IsActive, e.CreatedBy, e.ModifiedBy, e.CreatedAt, e.ModifiedAt,
	).Scan(&e.ID)
}

// Update persists the mutable columns of e. The UUID and campaign never change.
func (r *PostgresEventRepository) Update(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `UPDATE campaign_events SET event_type = $3, flow_id = $4, relative_to_id = $5, "offset" = $6, unit = $7,
		delivery_hour = $8, message = $9, is_active = $10, modified_by = $11, modified_at = $12
		WHERE org_id = $1 AND id = $2`,
		e.OrgID, e.ID, string(e.EventType), e.FlowID, e.RelativeToID, e.Offset, string(e.Unit),
		e.DeliveryHour, e.Message, e.IsActive, e.ModifiedBy, e.ModifiedAt)
	return err
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.GroupID, &c.IsActive, &c.IsArchived, &c.CreatedBy, &c.ModifiedBy, &c.CreatedAt, &c.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.UUID, &e.OrgID, &e.CampaignID, &e.EventType, &e.FlowID, &e.RelativeToID, &e.Offset, &e.Unit,
		&e.DeliveryHour, &e.Message, &e.IsActive, &e.CreatedBy, &e.ModifiedBy, &e.CreatedAt, &e.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
