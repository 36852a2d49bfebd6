package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockPinger struct{ err error }

func (m *mockPinger) PingContext(context.Context) error { return m.err }

type mockPolicyChecker struct{ err error }

func (m *mockPolicyChecker) HealthCheck(context.Context) error { return m.err }

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name    string
		db      Pinger
		policy  PolicyChecker
		wantErr bool
	}{
		{"no dependencies", nil, nil, false},
		{"all healthy", &mockPinger{}, &mockPolicyChecker{}, false},
		{"database down", &mockPinger{err: errors.New("refused")}, &mockPolicyChecker{}, true},
		{"policy broken", &mockPinger{}, &mockPolicyChecker{err: errors.New("compile")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewChecker(tt.db, tt.policy, nil).Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChecker_UpdateSetsGRPCStatus(t *testing.T) {
	hs := health.NewServer()
	db := &mockPinger{}
	c := NewChecker(db, nil, nil)

	c.Update(context.Background(), hs)
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}

	db.err = errors.New("refused")
	c.Update(context.Background(), hs)
	resp, _ = hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestChecker_ServeHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := &mockPinger{}
	r := gin.New()
	r.GET("/healthz", NewChecker(db, nil, nil).ServeHTTP)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}

	db.err = errors.New("refused")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", w.Code)
	}
}
