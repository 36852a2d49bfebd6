package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*Event
	err    error
	done   chan struct{}
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, ev *Event) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func TestDispatchAsync_Nil(t *testing.T) {
	DispatchAsync(nil, nil, &Event{Kind: KindBroadcast})
	d := &recordingDispatcher{done: make(chan struct{}, 1)}
	DispatchAsync(d, nil, nil)
	time.Sleep(10 * time.Millisecond)
	if len(d.events) != 0 {
		t.Errorf("dispatched %d events for nil event", len(d.events))
	}
}

func TestDispatchAsync_DeliversWithDeadline(t *testing.T) {
	d := &recordingDispatcher{done: make(chan struct{}, 1), err: errors.New("broker down")}
	DispatchAsync(d, nil, &Event{OrgID: "org-1", Kind: KindMessage, BroadcastID: 7, MessageIDs: []int64{1, 2}})

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch not called")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) != 1 || d.events[0].BroadcastID != 7 {
		t.Errorf("events = %+v", d.events)
	}
}
