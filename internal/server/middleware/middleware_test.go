package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tenant-messaging-api/backend/internal/audit"
	"tenant-messaging-api/backend/internal/telemetry/domain"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeVerifier map[string][2]string

func (f fakeVerifier) Verify(token string) (string, string, error) {
	id, ok := f[token]
	if !ok {
		return "", "", errors.New("invalid token")
	}
	return id[0], id[1], nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAudit) LogEvent(_ context.Context, orgID, userID, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, orgID+"/"+userID+"/"+action+"/"+resource+"/"+metadata)
}

type recordingEmitter chan *domain.Event

func (r recordingEmitter) Emit(_ context.Context, ev *domain.Event) error {
	r <- ev
	return nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.POST("/api/v1/contacts", func(c *gin.Context) {
		userID, _ := GetUserID(c.Request.Context())
		orgID, _ := GetOrgID(c.Request.Context())
		c.JSON(http.StatusCreated, gin.H{"user": userID, "org": orgID, "ip": ClientIP(c.Request.Context())})
	})
	r.POST("/api/v1/labels", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"name": []string{"This field is required."}})
	})
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.RemoteAddr = "10.0.0.7:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newRouter(Auth(fakeVerifier{"good": {"user-1", "org-1"}}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusCreated},
		{"case insensitive scheme", "bearer   good ", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, "/api/v1/contacts", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusCreated {
				assert.JSONEq(t, `{"user":"user-1","org":"org-1","ip":"10.0.0.7"}`, w.Body.String())
			}
		})
	}
}

func TestAuditRejected(t *testing.T) {
	rec := &recordingAudit{}
	r := newRouter(AuditRejected(rec), Auth(fakeVerifier{"good": {"user-1", "org-1"}}))

	do(r, "/api/v1/contacts", "Bearer good")
	do(r, "/api/v1/labels", "Bearer good")
	do(r, "/api/v1/contacts", "")

	assert.Equal(t, []string{
		"org-1/user-1/" + audit.ActionRejected + `/label/{"status":400}`,
		"//" + audit.ActionRejected + `/contact/{"status":401}`,
	}, rec.events)
}

func TestTelemetry(t *testing.T) {
	em := make(recordingEmitter, 1)
	r := newRouter(Telemetry(em, zap.NewNop()), Auth(fakeVerifier{"good": {"user-1", "org-1"}}))

	do(r, "/api/v1/contacts", "Bearer good")
	select {
	case ev := <-em:
		assert.Equal(t, "http_request", ev.EventType)
		assert.Equal(t, "org-1", ev.OrgID)
		assert.Contains(t, string(ev.Metadata), `"route":"/api/v1/contacts"`)
		assert.Contains(t, string(ev.Metadata), `"status":201`)
	case <-time.After(time.Second):
		t.Fatal("no telemetry event")
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(AccessLog(zap.New(core)), Auth(fakeVerifier{"good": {"user-1", "org-1"}}))

	do(r, "/api/v1/contacts", "Bearer good")
	do(r, "/api/v1/labels", "Bearer good")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "org-1", entries[0].ContextMap()["org_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 400, entries[1].ContextMap()["status"])
}

func TestClientIP_DefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", ClientIP(context.Background()))
	assert.Equal(t, "1.2.3.4", ClientIP(WithClientIP(context.Background(), "1.2.3.4")))
}
