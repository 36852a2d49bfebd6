package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/db"
)

const contactColumns = `id, uuid, org_id, name, language, is_active, created_by, modified_by, created_at, modified_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a contact repository that uses the given db for persistence.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetByUUID returns the active contact for uuid in orgID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE org_id = $1 AND uuid = $2 AND is_active`, orgID, uuid)
	return scanContact(row)
}

// GetByID returns the active contact for id in orgID, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID string, id int64) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE org_id = $1 AND id = $2 AND is_active`, orgID, id)
	return scanContact(row)
}

// ListByGroups returns the distinct active contacts that belong to any of groupIDs.
func (r *PostgresRepository) ListByGroups(ctx context.Context, orgID string, groupIDs []int64) ([]*domain.Contact, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT c.id, c.uuid, c.org_id, c.name, c.language, c.is_active,
		c.created_by, c.modified_by, c.created_at, c.modified_at
		FROM contacts c JOIN contact_group_members m ON m.contact_id = c.id
		WHERE c.org_id = $1 AND c.is_active AND m.group_id = ANY($2) ORDER BY c.id`, orgID, groupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts c and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Contact) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO contacts (uuid, org_id, name, language, is_active, created_by, modified_by, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		c.UUID, c.OrgID, c.Name, c.Language, c.IsActive, c.CreatedBy, c.ModifiedBy, c.CreatedAt, c.ModifiedAt,
	).Scan(&c.ID)
}

// Update persists name, language, active flag and modification stamps of c.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET name = $3, language = $4, is_active = $5, modified_by = $6, modified_at = $7 WHERE org_id = $1 AND id = $2`,
		c.OrgID, c.ID, c.Name, c.Language, c.IsActive, c.ModifiedBy, c.ModifiedAt)
	return err
}

// SetValue inserts or replaces the value of one field for one contact.
func (r *PostgresRepository) SetValue(ctx context.Context, v *domain.Value) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO contact_values (contact_id, field_id, text_value, number_value, datetime_value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_id, field_id) DO UPDATE
		SET text_value = EXCLUDED.text_value, number_value = EXCLUDED.number_value, datetime_value = EXCLUDED.datetime_value`,
		v.ContactID, v.FieldID, v.Text, v.Number, v.Datetime)
	return err
}

// ClearValue removes the value of one field for one contact. Missing values are not an error.
func (r *PostgresRepository) ClearValue(ctx context.Context, contactID, fieldID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contact_values WHERE contact_id = $1 AND field_id = $2`, contactID, fieldID)
	return err
}

// GroupIDs returns the ids of the groups contactID belongs to.
func (r *PostgresRepository) GroupIDs(ctx context.Context, contactID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id FROM contact_group_members WHERE contact_id = $1 ORDER BY group_id`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddToGroup adds contactID to groupID. Existing membership is left as is.
func (r *PostgresRepository) AddToGroup(ctx context.Context, contactID, groupID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_group_members (group_id, contact_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, groupID, contactID)
	return err
}

// RemoveFromGroup removes contactID from groupID.
func (r *PostgresRepository) RemoveFromGroup(ctx context.Context, contactID, groupID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM contact_group_members WHERE group_id = $1 AND contact_id = $2`, groupID, contactID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.UUID, &c.OrgID, &c.Name, &c.Language, &c.IsActive, &c.CreatedBy, &c.ModifiedBy, &c.CreatedAt, &c.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
