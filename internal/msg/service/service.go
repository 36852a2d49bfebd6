// Package service implements the message writes: broadcasts, direct messages, labels and bulk message actions.
package service

import (
	"context"

	"tenant-messaging-api/backend/internal/dispatch"
	"tenant-messaging-api/backend/internal/msg/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// Service runs the message writes.
type Service struct {
	w          *write.Writer
	dispatcher dispatch.Dispatcher
	broadcast  *pipeline.Schema[*write.Env, *WrittenBroadcast]
	msg        *pipeline.Schema[*write.Env, *Sent]
	label      *pipeline.Schema[*write.Env, *domain.Label]
	action     *pipeline.Schema[*write.Env, *ActionResult]
}

// NewService returns a Service writing through w. Created broadcasts and messages are handed to d after commit;
// d may be nil.
func NewService(w *write.Writer, d dispatch.Dispatcher) *Service {
	s := &Service{w: w, dispatcher: d, label: labelWriteSchema(), action: bulkActionSchema()}
	s.broadcast = s.broadcastSchema()
	s.msg = s.msgCreateSchema()
	return s
}

// CreateBroadcast creates a broadcast from body.
func (s *Service) CreateBroadcast(ctx context.Context, body any) (*WrittenBroadcast, error) {
	return write.Run(ctx, s.w, s.broadcast, body)
}

// CreateMessages sends text to the recipients in body.
func (s *Service) CreateMessages(ctx context.Context, body any) (*Sent, error) {
	return write.Run(ctx, s.w, s.msg, body)
}

// WriteLabel creates or renames a label from body.
func (s *Service) WriteLabel(ctx context.Context, body any) (*domain.Label, error) {
	return write.Run(ctx, s.w, s.label, body)
}

// ApplyAction runs a bulk action over incoming messages.
func (s *Service) ApplyAction(ctx context.Context, body any) (*ActionResult, error) {
	return write.Run(ctx, s.w, s.action, body)
}
