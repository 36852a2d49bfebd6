package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/urn"
)

var urnRowColumns = []string{"id", "org_id", "contact_id", "scheme", "path", "priority"}

func TestPostgresURNRepository_GetOrCreate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	u := urn.NewTel("+250788123123")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO contact_urns`)).
		WithArgs("org-1", "tel", "+250788123123", "tel:+250788123123", domain.DefaultPriority).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM contact_urns WHERE org_id = $1 AND identity = $2 FOR UPDATE`)).
		WithArgs("org-1", "tel:+250788123123").
		WillReturnRows(sqlmock.NewRows(urnRowColumns).AddRow(int64(5), "org-1", nil, "tel", "+250788123123", 50))

	row, err := NewPostgresURNRepository(conn).GetOrCreate(context.Background(), "org-1", u)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if row.ID != 5 || row.ContactID != nil || row.Identity() != "tel:+250788123123" {
		t.Errorf("row = %+v", row)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresURNRepository_ListByContact(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contact_urns WHERE contact_id = $1 ORDER BY priority DESC`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(urnRowColumns).
			AddRow(int64(5), "org-1", int64(3), "tel", "+250788123123", 51).
			AddRow(int64(6), "org-1", int64(3), "twitter", "jimmy", 50))

	rows, err := NewPostgresURNRepository(conn).ListByContact(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListByContact: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if !r.IsOwnedBy(3) {
			t.Errorf("row %d not owned by contact 3", r.ID)
		}
	}
	if rows[1].Identity() != "twitter:jimmy" {
		t.Errorf("identity = %q", rows[1].Identity())
	}
}

func TestPostgresURNRepository_Detach(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE contact_urns SET contact_id = NULL WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPostgresURNRepository(conn).Detach(context.Background(), 5); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
