package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tenant-messaging-api/backend/internal/policy/domain"
)

func TestPostgresRepository_GetEnabledPoliciesByOrg(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM policies WHERE org_id = $1 AND enabled`)).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "rules", "enabled", "created_at"}).
			AddRow("p1", "org-1", "package msgapi.write", true, now).
			AddRow("p2", "org-1", "package msgapi.write", true, now))

	repo := NewPostgresRepository(conn)
	got, err := repo.GetEnabledPoliciesByOrg(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("GetEnabledPoliciesByOrg: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p2" {
		t.Errorf("got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_GetByID_NotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM policies WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "rules", "enabled", "created_at"}))

	p, err := NewPostgresRepository(conn).GetByID(context.Background(), "missing")
	if err != nil || p != nil {
		t.Fatalf("GetByID = %v, %v; want nil, nil", p, err)
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	p := &domain.Policy{ID: "p1", OrgID: "org-1", Rules: "package msgapi.write", Enabled: true, CreatedAt: time.Now().UTC()}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO policies`)).
		WithArgs(p.ID, p.OrgID, p.Rules, p.Enabled, p.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPostgresRepository(conn).Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
