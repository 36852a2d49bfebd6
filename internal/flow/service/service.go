// Package service implements the flow writes: creating and updating flows, starting them for contacts, and
// the hidden single-message flows owned by campaign message events.
package service

import (
	"context"

	"tenant-messaging-api/backend/internal/dispatch"
	"tenant-messaging-api/backend/internal/flow/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// Service runs the flow writes.
type Service struct {
	w          *write.Writer
	dispatcher dispatch.Dispatcher
	flow       *pipeline.Schema[*write.Env, *domain.Flow]
	start      *pipeline.Schema[*write.Env, []*domain.Run]
}

// NewService returns a Service writing through w. Started runs are handed to d after commit; d may be nil.
func NewService(w *write.Writer, d dispatch.Dispatcher) *Service {
	s := &Service{w: w, dispatcher: d, flow: flowWriteSchema()}
	s.start = s.flowStartSchema()
	return s
}

// WriteFlow creates or updates a flow from body.
func (s *Service) WriteFlow(ctx context.Context, body any) (*domain.Flow, error) {
	return write.Run(ctx, s.w, s.flow, body)
}

// StartFlow starts a flow for the recipients in body and returns the created runs.
func (s *Service) StartFlow(ctx context.Context, body any) ([]*domain.Run, error) {
	return write.Run(ctx, s.w, s.start, body)
}
