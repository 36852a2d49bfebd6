package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tenant-messaging-api/backend/internal/flow/domain"
)

var flowRowColumns = []string{"id", "uuid", "org_id", "name", "flow_type", "definition", "version", "is_system", "is_archived",
	"is_active", "created_by", "modified_by", "created_at", "modified_at"}

func TestPostgresRepository_GetByUUID(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM flows WHERE org_id = $1 AND uuid = $2 AND is_active`)).
		WithArgs("org-1", "f-1").
		WillReturnRows(sqlmock.NewRows(flowRowColumns).
			AddRow(int64(2), "f-1", "org-1", "Registration", "F", []byte(`{"nodes":[]}`), 3, false, false, true, "u", "u", now, now))

	f, err := NewPostgresRepository(conn).GetByUUID(context.Background(), "org-1", "f-1")
	if err != nil {
		t.Fatalf("GetByUUID: %v", err)
	}
	if f == nil || f.ID != 2 || f.FlowType != domain.FlowTypeFlow || f.Version != 3 || string(f.Definition) != `{"nodes":[]}` {
		t.Errorf("flow = %+v", f)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_Create_NullDefinition(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	now := time.Now().UTC()
	f := &domain.Flow{UUID: "f-1", OrgID: "org-1", Name: "Survey", FlowType: domain.FlowTypeSurvey, Version: 1, IsActive: true,
		CreatedAt: now, ModifiedAt: now}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO flows`)).
		WithArgs("f-1", "org-1", "Survey", "S", nil, 1, false, false, true, "", "", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	if err := NewPostgresRepository(conn).Create(context.Background(), f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID != 8 {
		t.Errorf("ID = %d, want 8", f.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRunRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	now := time.Now().UTC()
	run := &domain.Run{UUID: "r-1", OrgID: "org-1", FlowID: 2, ContactID: 3, IsActive: true,
		Extra: map[string]string{"source": "api"}, CreatedAt: now}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO flow_runs`)).
		WithArgs("r-1", "org-1", int64(2), int64(3), true, []byte(`{"source":"api"}`), "", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))

	if err := NewPostgresRunRepository(conn).Create(context.Background(), run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.ID != 21 {
		t.Errorf("ID = %d, want 21", run.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRunRepository_ContactsWithRuns_Empty(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	got, err := NewPostgresRunRepository(conn).ContactsWithRuns(context.Background(), 2, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("ContactsWithRuns = %v, %v; want empty", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
