package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"tenant-messaging-api/backend/internal/db"
	"tenant-messaging-api/backend/internal/flow/domain"
)

const flowColumns = `id, uuid, org_id, name, flow_type, definition, version, is_system, is_archived, is_active,
	created_by, modified_by, created_at, modified_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a flow repository that uses the given db for persistence.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetByUUID returns the active flow for uuid in orgID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Flow, error) {
	return scanFlow(r.db.QueryRowContext(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE org_id = $1 AND uuid = $2 AND is_active`, orgID, uuid))
}

// GetByID returns the active flow for id in orgID, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID string, id int64) (*domain.Flow, error) {
	return scanFlow(r.db.QueryRowContext(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE org_id = $1 AND id = $2 AND is_active`, orgID, id))
}

// Create inserts f and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, f *domain.Flow) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO flows (uuid, org_id, name, flow_type, definition, version, is_system, is_archived, is_active,
		created_by, modified_by, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		f.UUID, f.OrgID, f.Name, string(f.FlowType), definitionArg(f.Definition), f.Version, f.IsSystem, f.IsArchived, f.IsActive,
		f.CreatedBy, f.ModifiedBy, f.CreatedAt, f.ModifiedAt,
	).Scan(&f.ID)
}

// Update persists the mutable columns of f.
func (r *PostgresRepository) Update(ctx context.Context, f *domain.Flow) error {
	_, err := r.db.ExecContext(ctx, `UPDATE flows SET name = $3, flow_type = $4, definition = $5, version = $6, is_archived = $7,
		is_active = $8, modified_by = $9, modified_at = $10 WHERE org_id = $1 AND id = $2`,
		f.OrgID, f.ID, f.Name, string(f.FlowType), definitionArg(f.Definition), f.Version, f.IsArchived,
		f.IsActive, f.ModifiedBy, f.ModifiedAt)
	return err
}

func definitionArg(def json.RawMessage) any {
	if len(def) == 0 {
		return nil
	}
	return []byte(def)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*domain.Flow, error) {
	var (
		f   domain.Flow
		def []byte
	)
	err := row.Scan(&f.ID, &f.UUID, &f.OrgID, &f.Name, &f.FlowType, &def, &f.Version, &f.IsSystem, &f.IsArchived, &f.IsActive,
		&f.CreatedBy, &f.ModifiedBy, &f.CreatedAt, &f.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(def) > 0 {
		f.Definition = json.RawMessage(def)
	}
	return &f, nil
}

type PostgresRunRepository struct {
	db db.DBTX
}

// NewPostgresRunRepository returns a flow run repository that uses the given db for persistence.
func NewPostgresRunRepository(q db.DBTX) *PostgresRunRepository {
	return &PostgresRunRepository{db: q}
}

// Create inserts run and sets its ID.
func (r *PostgresRunRepository) Create(ctx context.Context, run *domain.Run) error {
	extra, err := json.Marshal(run.Extra)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, `INSERT INTO flow_runs (uuid, org_id, flow_id, contact_id, is_active, extra, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		run.UUID, run.OrgID, run.FlowID, run.ContactID, run.IsActive, extra, run.CreatedBy, run.CreatedAt,
	).Scan(&run.ID)
}

// ContactsWithRuns returns which of contactIDs have any run of flowID.
func (r *PostgresRunRepository) ContactsWithRuns(ctx context.Context, flowID int64, contactIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(contactIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT contact_id FROM flow_runs WHERE flow_id = $1 AND contact_id = ANY($2)`, flowID, contactIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
