// Package httpx holds the request decoding and error responses shared by the JSON API handlers.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// MaxBodyBytes bounds a request body.
const MaxBodyBytes = 1 << 20

// ReadBody decodes the request body as a single JSON value. Numbers are kept as json.Number so integer ids
// survive intact. Anything that is not exactly one JSON value fails with a structural error.
func ReadBody(c *gin.Context) (any, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodyBytes))
	if err != nil {
		return nil, pipeline.Structural("Invalid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, pipeline.Structural("Invalid JSON")
	}
	if dec.More() {
		return nil, pipeline.Structural("Invalid JSON")
	}
	return body, nil
}

// Status returns the HTTP status for an error returned by a write.
func Status(err error) int {
	if _, ok := pipeline.AsValidation(err); ok {
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, write.ErrNoOrg):
		return http.StatusUnauthorized
	case errors.Is(err, write.ErrOrgInactive):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// RespondError writes err. Validation failures are returned as the field error map; internal failures are
// logged and hidden behind a generic message.
func RespondError(c *gin.Context, log *zap.Logger, err error) {
	status := Status(err)
	switch status {
	case http.StatusBadRequest:
		ve, _ := pipeline.AsValidation(err)
		c.JSON(status, ve.Map())
	case http.StatusUnauthorized:
		c.JSON(status, gin.H{"detail": "Authentication credentials were not provided."})
	case http.StatusForbidden:
		c.JSON(status, gin.H{"detail": "You do not have permission to perform this action."})
	default:
		log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"detail": "Internal server error."})
	}
}

// Write decodes the body, runs fn and responds 201 with the projection of its result, or with the error.
func Write[T any](c *gin.Context, log *zap.Logger, fn func(ctx context.Context, body any) (T, error), project func(T) any) {
	body, err := ReadBody(c)
	if err != nil {
		RespondError(c, log, err)
		return
	}
	out, err := fn(c.Request.Context(), body)
	if err != nil {
		RespondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, project(out))
}
