package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/db"
)

const groupColumns = `id, uuid, org_id, name, is_active, created_by, created_at`

type PostgresGroupRepository struct {
	db db.DBTX
}

// NewPostgresGroupRepository returns a group repository that uses the given db for persistence.
func NewPostgresGroupRepository(q db.DBTX) *PostgresGroupRepository {
	return &PostgresGroupRepository{db: q}
}

// GetByUUID returns the active group for uuid in orgID, or nil if not found.
func (r *PostgresGroupRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM contact_groups WHERE org_id = $1 AND uuid = $2 AND is_active`, orgID, uuid)
	return scanGroup(row)
}

// GetByID returns the active group for id in orgID, or nil if not found.
func (r *PostgresGroupRepository) GetByID(ctx context.Context, orgID string, id int64) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM contact_groups WHERE org_id = $1 AND id = $2 AND is_active`, orgID, id)
	return scanGroup(row)
}

// GetByName returns the active group named exactly name in orgID, or nil if not found.
func (r *PostgresGroupRepository) GetByName(ctx context.Context, orgID, name string) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM contact_groups WHERE org_id = $1 AND name = $2 AND is_active ORDER BY id LIMIT 1`, orgID, name)
	return scanGroup(row)
}

// Create inserts g and sets its ID.
func (r *PostgresGroupRepository) Create(ctx context.Context, g *domain.Group) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO contact_groups (uuid, org_id, name, is_active, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		g.UUID, g.OrgID, g.Name, g.IsActive, g.CreatedBy, g.CreatedAt,
	).Scan(&g.ID)
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.UUID, &g.OrgID, &g.Name, &g.IsActive, &g.CreatedBy, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}
