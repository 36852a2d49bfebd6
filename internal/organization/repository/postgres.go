package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"tenant-messaging-api/backend/internal/db"
	"tenant-messaging-api/backend/internal/organization/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	var (
		o     domain.Org
		langs []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, status, anonymous, languages, created_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Status, &o.Anonymous, &langs, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(langs) > 0 {
		if err := json.Unmarshal(langs, &o.Languages); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

// CreateOrganization persists the organization to the database. The organization must have ID set.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	langs, err := marshalLanguages(o.Languages)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, status, anonymous, languages, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.Name, string(o.Status), o.Anonymous, langs, o.CreatedAt)
	return err
}

// UpdateOrganization updates the existing organization record in the database. Returns an error if the update fails.
func (r *PostgresRepository) UpdateOrganization(ctx context.Context, o *domain.Org) error {
	langs, err := marshalLanguages(o.Languages)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE organizations SET name = $2, status = $3, anonymous = $4, languages = $5 WHERE id = $1`,
		o.ID, o.Name, string(o.Status), o.Anonymous, langs)
	return err
}

func marshalLanguages(langs []string) ([]byte, error) {
	if langs == nil {
		langs = []string{}
	}
	return json.Marshal(langs)
}
