package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/db"
	"tenant-messaging-api/backend/internal/urn"
)

const urnColumns = `id, org_id, contact_id, scheme, path, priority`

type PostgresURNRepository struct {
	db db.DBTX
}

// NewPostgresURNRepository returns a contact URN repository that uses the given db for persistence.
func NewPostgresURNRepository(q db.DBTX) *PostgresURNRepository {
	return &PostgresURNRepository{db: q}
}

// GetOrCreate inserts an unowned row for u unless one exists, then selects it FOR UPDATE. The unique
// (org_id, identity) constraint makes concurrent inserts converge; the row lock serializes the callers that go
// on to attach the row to a contact.
func (r *PostgresURNRepository) GetOrCreate(ctx context.Context, orgID string, u urn.URN) (*domain.ContactURN, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO contact_urns (org_id, scheme, path, identity, priority)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (org_id, identity) DO NOTHING`,
		orgID, u.Scheme, u.Path, u.String(), domain.DefaultPriority)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+urnColumns+` FROM contact_urns WHERE org_id = $1 AND identity = $2 FOR UPDATE`, orgID, u.String())
	cu, err := scanURN(row)
	if err != nil {
		return nil, err
	}
	if cu == nil {
		return nil, errors.New("contact urn vanished after insert")
	}
	return cu, nil
}

// GetByIdentity returns the row for identity in orgID, or nil if not found.
func (r *PostgresURNRepository) GetByIdentity(ctx context.Context, orgID, identity string) (*domain.ContactURN, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+urnColumns+` FROM contact_urns WHERE org_id = $1 AND identity = $2`, orgID, identity)
	return scanURN(row)
}

// ListByContact returns the rows owned by contactID, highest priority first.
func (r *PostgresURNRepository) ListByContact(ctx context.Context, contactID int64) ([]*domain.ContactURN, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+urnColumns+` FROM contact_urns WHERE contact_id = $1 ORDER BY priority DESC, id`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ContactURN
	for rows.Next() {
		cu, err := scanURN(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cu)
	}
	return out, rows.Err()
}

// Assign attaches urnID to contactID with the given priority.
func (r *PostgresURNRepository) Assign(ctx context.Context, urnID, contactID int64, priority int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contact_urns SET contact_id = $2, priority = $3 WHERE id = $1`, urnID, contactID, priority)
	return err
}

// Detach releases urnID from its contact. The row itself is kept for reuse.
func (r *PostgresURNRepository) Detach(ctx context.Context, urnID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE contact_urns SET contact_id = NULL WHERE id = $1`, urnID)
	return err
}

func scanURN(row rowScanner) (*domain.ContactURN, error) {
	var (
		cu        domain.ContactURN
		contactID sql.NullInt64
	)
	err := row.Scan(&cu.ID, &cu.OrgID, &contactID, &cu.Scheme, &cu.Path, &cu.Priority)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if contactID.Valid {
		id := contactID.Int64
		cu.ContactID = &id
	}
	return &cu, nil
}
