package audit

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"tenant-messaging-api/backend/internal/audit/domain"
)

// mockAuditRepo implements audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" }, nil)

	logger.LogEvent(context.Background(), "org-1", "user-1", ActionCreate, "contact", `{"uuid":"c1"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.OrgID != "org-1" || entry.UserID != "user-1" {
		t.Errorf("org/user = %q/%q", entry.OrgID, entry.UserID)
	}
	if entry.Action != ActionCreate || entry.Resource != "contact" {
		t.Errorf("action/resource = %q/%q", entry.Action, entry.Resource)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != `{"uuid":"c1"}` {
		t.Errorf("metadata = %q", entry.Metadata)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("entry ID and CreatedAt should be set")
	}
}

func TestLogger_LogEvent_Defaults(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "", "", ActionRejected, "contact", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].OrgID != SentinelOrgID {
		t.Errorf("org_id = %q, want %q", repo.entries[0].OrgID, SentinelOrgID)
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown", repo.entries[0].IP)
	}
	if repo.entries[0].TraceID != "" {
		t.Errorf("trace_id = %q, want empty without a span", repo.entries[0].TraceID)
	}
}

func TestLogger_LogEvent_RecordsTraceID(t *testing.T) {
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled,
	}))

	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(ctx, "org-1", "user-1", ActionCreate, "broadcast", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if got := repo.entries[0].TraceID; got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %q", got)
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "org-1", "user-1", ActionUpdate, "flow", "")
	if len(repo.entries) != 0 {
		t.Errorf("expected no entries, got %d", len(repo.entries))
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil, nil).LogEvent(context.Background(), "org-1", "", ActionCreate, "label", "")
	var l *Logger
	l.LogEvent(context.Background(), "org-1", "", ActionCreate, "label", "")
}
