// Package dispatch hands committed writes to the asynchronous sender. Dispatch is fire-and-forget: the write
// that produced an event never observes its outcome.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Kind names what a dispatch event asks the sender to do.
type Kind string

const (
	KindBroadcast Kind = "broadcast"
	KindMessage   Kind = "message"
	KindFlowStart Kind = "flow_start"
)

// Event identifies committed work for the sender.
type Event struct {
	OrgID       string    `json:"org_id"`
	Kind        Kind      `json:"kind"`
	BroadcastID int64     `json:"broadcast_id,omitempty"`
	MessageIDs  []int64   `json:"message_ids,omitempty"`
	FlowID      int64     `json:"flow_id,omitempty"`
	RunIDs      []int64   `json:"run_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Dispatcher delivers events to the sender.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *Event) error
}

const dispatchTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops so in-flight dispatches can finish.
const ShutdownDrainDuration = dispatchTimeout

// DispatchAsync runs Dispatch in a goroutine with a short timeout. d and ev may be nil; then it returns
// immediately. Failures are logged and never retried.
func DispatchAsync(d Dispatcher, log *zap.Logger, ev *Event) {
	if d == nil || ev == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.Dispatch(ctx, ev); err != nil {
			log.Warn("dispatch: async dispatch failed",
				zap.String("org_id", ev.OrgID), zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}()
}
