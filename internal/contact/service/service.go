package service

import (
	"context"

	"tenant-messaging-api/backend/internal/contact/domain"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// Service runs the contact writes.
type Service struct {
	w       *write.Writer
	contact *pipeline.Schema[*write.Env, *Written]
	field   *pipeline.Schema[*write.Env, *domain.ContactField]
}

// NewService returns a Service writing through w.
func NewService(w *write.Writer) *Service {
	return &Service{w: w, contact: contactWriteSchema(), field: fieldWriteSchema()}
}

// WriteContact creates or updates a contact from body.
func (s *Service) WriteContact(ctx context.Context, body any) (*Written, error) {
	return write.Run(ctx, s.w, s.contact, body)
}

// WriteField creates or updates a contact field from body.
func (s *Service) WriteField(ctx context.Context, body any) (*domain.ContactField, error) {
	return write.Run(ctx, s.w, s.field, body)
}
