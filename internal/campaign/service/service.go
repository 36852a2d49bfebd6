// Package service implements the campaign and campaign event writes.
package service

import (
	"context"

	flowservice "tenant-messaging-api/backend/internal/flow/service"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// Service runs the campaign writes.
type Service struct {
	w        *write.Writer
	hidden   flowservice.SingleMessageFlows
	campaign *pipeline.Schema[*write.Env, *WrittenCampaign]
	event    *pipeline.Schema[*write.Env, *WrittenEvent]
}

// NewService returns a Service writing through w.
func NewService(w *write.Writer) *Service {
	s := &Service{w: w, campaign: campaignWriteSchema()}
	s.event = s.eventWriteSchema()
	return s
}

// WriteCampaign creates or updates a campaign from body.
func (s *Service) WriteCampaign(ctx context.Context, body any) (*WrittenCampaign, error) {
	return write.Run(ctx, s.w, s.campaign, body)
}

// WriteEvent creates or updates a campaign event from body.
func (s *Service) WriteEvent(ctx context.Context, body any) (*WrittenEvent, error) {
	return write.Run(ctx, s.w, s.event, body)
}
