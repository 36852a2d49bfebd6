package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-messaging-api/backend/internal/db"
	"tenant-messaging-api/backend/internal/msg/domain"
)

const (
	msgColumns   = `id, uuid, org_id, broadcast_id, contact_id, contact_urn_id, channel_id, text, direction, status, visibility, created_at`
	labelColumns = `id, uuid, org_id, name, visible_count, is_active, created_by, created_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresBroadcastRepository struct {
	db db.DBTX
}

// NewPostgresBroadcastRepository returns a broadcast repository that uses the given db for persistence.
func NewPostgresBroadcastRepository(q db.DBTX) *PostgresBroadcastRepository {
	return &PostgresBroadcastRepository{db: q}
}

// Create inserts b and its recipients and sets its ID. Callers run it inside a transaction.
func (r *PostgresBroadcastRepository) Create(ctx context.Context, b *domain.Broadcast) error {
	err := r.db.QueryRowContext(ctx, `INSERT INTO broadcasts (uuid, org_id, text, channel_id, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		b.UUID, b.OrgID, b.Text, b.ChannelID, string(b.Status), b.CreatedBy, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		return err
	}
	for _, id := range b.ContactIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO broadcast_contacts (broadcast_id, contact_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, b.ID, id); err != nil {
			return err
		}
	}
	for _, id := range b.GroupIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO broadcast_groups (broadcast_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, b.ID, id); err != nil {
			return err
		}
	}
	for _, identity := range b.URNs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO broadcast_urns (broadcast_id, identity) VALUES ($1, $2) ON CONFLICT DO NOTHING`, b.ID, identity); err != nil {
			return err
		}
	}
	return nil
}

type PostgresMsgRepository struct {
	db db.DBTX
}

// NewPostgresMsgRepository returns a message repository that uses the given db for persistence.
func NewPostgresMsgRepository(q db.DBTX) *PostgresMsgRepository {
	return &PostgresMsgRepository{db: q}
}

// Create inserts m and sets its ID.
func (r *PostgresMsgRepository) Create(ctx context.Context, m *domain.Msg) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO msgs (uuid, org_id, broadcast_id, contact_id, contact_urn_id, channel_id, text, direction,
		status, visibility, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		m.UUID, m.OrgID, m.BroadcastID, m.ContactID, m.ContactURNID, m.ChannelID, m.Text, string(m.Direction),
		string(m.Status), string(m.Visibility), m.CreatedAt,
	).Scan(&m.ID)
}

// ListForAction returns the messages of orgID with direction among ids. Rows are locked for the transaction.
func (r *PostgresMsgRepository) ListForAction(ctx context.Context, orgID string, direction domain.Direction, ids []int64) ([]*domain.Msg, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+msgColumns+` FROM msgs
		WHERE org_id = $1 AND direction = $2 AND id = ANY($3) ORDER BY id FOR UPDATE`, orgID, string(direction), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Msg
	for rows.Next() {
		m, err := scanMsg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetVisibility updates the visibility of msgID.
func (r *PostgresMsgRepository) SetVisibility(ctx context.Context, msgID int64, v domain.Visibility) error {
	_, err := r.db.ExecContext(ctx, `UPDATE msgs SET visibility = $2 WHERE id = $1`, msgID, string(v))
	return err
}

// LabelIDs returns the labels of msgID.
func (r *PostgresMsgRepository) LabelIDs(ctx context.Context, msgID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT label_id FROM msg_labels WHERE msg_id = $1 ORDER BY label_id`, msgID)
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

// AddLabel labels msgID with labelID and reports whether the association is new.
func (r *PostgresMsgRepository) AddLabel(ctx context.Context, msgID, labelID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO msg_labels (msg_id, label_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, msgID, labelID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveLabel removes labelID from msgID and reports whether it was there.
func (r *PostgresMsgRepository) RemoveLabel(ctx context.Context, msgID, labelID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM msg_labels WHERE msg_id = $1 AND label_id = $2`, msgID, labelID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanMsg(row rowScanner) (*domain.Msg, error) {
	var (
		m                          domain.Msg
		broadcastID, urnID, chanID sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.UUID, &m.OrgID, &broadcastID, &m.ContactID, &urnID, &chanID, &m.Text, &m.Direction,
		&m.Status, &m.Visibility, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.BroadcastID = nullableID(broadcastID)
	m.ContactURNID = nullableID(urnID)
	m.ChannelID = nullableID(chanID)
	return &m, nil
}

func nullableID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}

type PostgresLabelRepository struct {
	db db.DBTX
}

// NewPostgresLabelRepository returns a label repository that uses the given db for persistence.
func NewPostgresLabelRepository(q db.DBTX) *PostgresLabelRepository {
	return &PostgresLabelRepository{db: q}
}

// GetByUUID returns the active label for uuid in orgID, or nil if not found.
func (r *PostgresLabelRepository) GetByUUID(ctx context.Context, orgID, uuid string) (*domain.Label, error) {
	return scanLabel(r.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE org_id = $1 AND uuid = $2 AND is_active`, orgID, uuid))
}

// GetByName returns the active label named name (case-insensitive) in orgID, or nil if not found.
func (r *PostgresLabelRepository) GetByName(ctx context.Context, orgID, name string) (*domain.Label, error) {
	return scanLabel(r.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE org_id = $1 AND lower(name) = lower($2) AND is_active`, orgID, name))
}

// Create inserts l and sets its ID.
func (r *PostgresLabelRepository) Create(ctx context.Context, l *domain.Label) error {
	return r.db.QueryRowContext(ctx, `INSERT INTO labels (uuid, org_id, name, visible_count, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		l.UUID, l.OrgID, l.Name, l.VisibleCount, l.IsActive, l.CreatedBy, l.CreatedAt,
	).Scan(&l.ID)
}

// Update persists the name and active flag of l. The visible count is only changed by AdjustVisibleCount.
func (r *PostgresLabelRepository) Update(ctx context.Context, l *domain.Label) error {
	_, err := r.db.ExecContext(ctx, `UPDATE labels SET name = $3, is_active = $4 WHERE org_id = $1 AND id = $2`,
		l.OrgID, l.ID, l.Name, l.IsActive)
	return err
}

// AdjustVisibleCount adds delta to the visible count of labelID.
func (r *PostgresLabelRepository) AdjustVisibleCount(ctx context.Context, labelID int64, delta int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE labels SET visible_count = visible_count + $2 WHERE id = $1`, labelID, delta)
	return err
}

func scanLabel(row rowScanner) (*domain.Label, error) {
	var l domain.Label
	if err := row.Scan(&l.ID, &l.UUID, &l.OrgID, &l.Name, &l.VisibleCount, &l.IsActive, &l.CreatedBy, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
