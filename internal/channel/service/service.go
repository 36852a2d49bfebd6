// Package service implements claiming a relayer channel for an org.
package service

import (
	"context"

	"tenant-messaging-api/backend/internal/channel/domain"
	channelsync "tenant-messaging-api/backend/internal/channel/sync"
	"tenant-messaging-api/backend/internal/pipeline"
	"tenant-messaging-api/backend/internal/write"
)

// Service runs channel writes.
type Service struct {
	w        *write.Writer
	notifier channelsync.Notifier
	claimS   *pipeline.Schema[*write.Env, *domain.Channel]
}

// NewService returns a Service writing through w. Claimed channels are announced through n after commit; n may
// be nil.
func NewService(w *write.Writer, n channelsync.Notifier) *Service {
	s := &Service{w: w, notifier: n}
	s.claimS = s.claimSchema()
	return s
}

// Claim binds the unclaimed channel named by the claim code in body to the caller's org.
func (s *Service) Claim(ctx context.Context, body any) (*domain.Channel, error) {
	return write.Run(ctx, s.w, s.claimS, body)
}

func (s *Service) notify(ch *domain.Channel) {
	if s.notifier == nil {
		return
	}
	channelsync.NotifyAsync(s.notifier, s.w.Logger(), ch)
}
