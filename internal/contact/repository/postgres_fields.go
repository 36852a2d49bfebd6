package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/db"
)

const fieldColumns = `id, org_id, key, label, value_type, is_active, created_by, created_at`

type PostgresFieldRepository struct {
	db db.DBTX
}

// NewPostgresFieldRepository returns a contact field repository that uses the given db for persistence.
func NewPostgresFieldRepository(q db.DBTX) *PostgresFieldRepository {
	return &PostgresFieldRepository{db: q}
}

// GetByKey returns the active field whose key matches key case-insensitively, or nil if not found.
func (r *PostgresFieldRepository) GetByKey(ctx context.Context, orgID, key string) (*domain.ContactField, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fieldColumns+` FROM contact_fields WHERE org_id = $1 AND lower(key) = lower($2) AND is_active`, orgID, key)
	return scanField(row)
}

// GetByLabel returns the active field whose label matches label case-insensitively, or nil if not found.
func (r *PostgresFieldRepository) GetByLabel(ctx context.Context, orgID, label string) (*domain.ContactField, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fieldColumns+` FROM contact_fields WHERE org_id = $1 AND lower(label) = lower($2) AND is_active ORDER BY id LIMIT 1`, orgID, label)
	return scanField(row)
}

// Create inserts f and sets its ID.
func (r *PostgresFieldRepository) Create(ctx context.Context, f *domain.ContactField) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO contact_fields (org_id, key, label, value_type, is_active, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		f.OrgID, f.Key, f.Label, string(f.ValueType), f.IsActive, f.CreatedBy, f.CreatedAt,
	).Scan(&f.ID)
}

// Update persists label, value type and active flag of f.
func (r *PostgresFieldRepository) Update(ctx context.Context, f *domain.ContactField) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contact_fields SET label = $3, value_type = $4, is_active = $5 WHERE org_id = $1 AND id = $2`,
		f.OrgID, f.ID, f.Label, string(f.ValueType), f.IsActive)
	return err
}

func scanField(row rowScanner) (*domain.ContactField, error) {
	var f domain.ContactField
	if err := row.Scan(&f.ID, &f.OrgID, &f.Key, &f.Label, &f.ValueType, &f.IsActive, &f.CreatedBy, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}
