package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(fn func(ctx context.Context, body any) (any, error), payload string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		Write(c, zap.NewNop(), fn, func(v any) any { return gin.H{"got": v} })
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(payload)))
	return w
}

func TestWrite_DecodesNumbersExactly(t *testing.T) {
	var got any
	w := serve(func(_ context.Context, body any) (any, error) {
		got = body
		return "ok", nil
	}, `{"id": 9007199254740993}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"got":"ok"}`, w.Body.String())
	assert.Equal(t, json.Number("9007199254740993"), got.(map[string]any)["id"])
}

func TestWrite_InvalidJSON(t *testing.T) {
	called := false
	fn := func(context.Context, any) (any, error) {
		called = true
		return nil, nil
	}
	for _, payload := range []string{`{"a":`, `{} {}`, ``} {
		w := serve(fn, payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		assert.JSONEq(t, `{"non_field_errors":["Invalid JSON"]}`, w.Body.String())
	}
	assert.False(t, called)
}

func TestWrite_ErrorStatuses(t *testing.T) {
	validation := &pipeline.ValidationError{Errors: []*pipeline.FieldError{
		{Field: "name", Kind: pipeline.KindFieldType, Message: "This field is required."},
	}}
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{validation, http.StatusBadRequest, `{"name":["This field is required."]}`},
		{write.ErrNoOrg, http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided."}`},
		{write.ErrOrgInactive, http.StatusForbidden, `{"detail":"You do not have permission to perform this action."}`},
		{errors.New("db down"), http.StatusInternalServerError, `{"detail":"Internal server error."}`},
	}
	for _, tt := range tests {
		w := serve(func(context.Context, any) (any, error) { return nil, tt.err }, `{}`)
		require.Equal(t, tt.status, w.Code, tt.err.Error())
		assert.JSONEq(t, tt.body, w.Body.String())
	}
}
