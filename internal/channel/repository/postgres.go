package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/channel/domain"
	"tenant-messaging-api/backend/internal/db"
)

const channelColumns = `id, uuid, COALESCE(org_id, ''), name, address, country, channel_type, scheme, role,
	COALESCE(claim_code, ''), secret, is_active, last_seen, created_at, modified_at, claimed_by`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a channel repository that uses the given db for persistence.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetByID returns the active channel for id in orgID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID string, id int64) (*domain.Channel, error) {
	return scanChannel(r.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE org_id = $1 AND id = $2 AND is_active`, orgID, id))
}

// GetByUUID returns the active channel for uuid in orgID, or nil if not found.
func (r *PostgresRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Channel, error) {
	return scanChannel(r.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE org_id = $1 AND uuid = $2 AND is_active`, orgID, uuid))
}

// GetByClaimCode returns the active unclaimed channel with code, locked for the transaction, or nil if not found.
func (r *PostgresRepository) GetByClaimCode(ctx context.Context, code string) (*domain.Channel, error) {
	return scanChannel(r.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE claim_code = $1 AND org_id IS NULL AND is_active FOR UPDATE`, code))
}

// GetSendChannel returns the most recently seen active channel of orgID able to send on scheme, or nil.
func (r *PostgresRepository) GetSendChannel(ctx context.Context, orgID, scheme string) (*domain.Channel, error) {
	return scanChannel(r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels
		WHERE org_id = $1 AND scheme = $2 AND position('S' in role) > 0 AND is_active
		ORDER BY last_seen DESC, id DESC LIMIT 1`, orgID, scheme))
}

// MostRecent returns the most recently seen active channel of orgID, or nil.
func (r *PostgresRepository) MostRecent(ctx context.Context, orgID string) (*domain.Channel, error) {
	return scanChannel(r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels
		WHERE org_id = $1 AND is_active ORDER BY last_seen DESC, id DESC LIMIT 1`, orgID))
}

// Claim persists the claim of c: its org, name, address and the consumed claim code.
func (r *PostgresRepository) Claim(ctx context.Context, c *domain.Channel) error {
	res, err := r.db.ExecContext(ctx, `UPDATE channels SET org_id = $2, name = $3, address = $4, claim_code = NULL,
		claimed_by = $5, modified_at = $6 WHERE id = $1 AND org_id IS NULL`,
		c.ID, c.OrgID, c.Name, c.Address, c.ClaimedBy, c.ModifiedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("channel already claimed")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*domain.Channel, error) {
	var c domain.Channel
	err := row.Scan(&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.Address, &c.Country, &c.ChannelType, &c.Scheme, &c.Role,
		&c.ClaimCode, &c.Secret, &c.IsActive, &c.LastSeen, &c.CreatedAt, &c.ModifiedAt, &c.ClaimedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
