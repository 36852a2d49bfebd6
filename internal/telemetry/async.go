package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/telemetry/domain"
)

// emitTimeout bounds a single forwarded Emit.
const emitTimeout = 5 * time.Second

// DefaultQueueSize is the event buffer used by the server.
const DefaultQueueSize = 1024

var (
	// ErrQueueFull is returned by AsyncEmitter.Emit when the buffer is full; the event is dropped.
	ErrQueueFull = errors.New("telemetry: queue full")
	// ErrClosed is returned by AsyncEmitter.Emit after Close.
	ErrClosed = errors.New("telemetry: emitter closed")
)

// AsyncEmitter buffers events and forwards them to another emitter from a single goroutine, so request
// handlers never wait on an exporter. Forwarding errors are logged.
type AsyncEmitter struct {
	next    EventEmitter
	log     *zap.Logger
	queue   chan *domain.Event
	done    chan struct{}
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncEmitter starts forwarding to next. size <= 0 uses DefaultQueueSize. log may be nil.
func NewAsyncEmitter(next EventEmitter, log *zap.Logger, size int) *AsyncEmitter {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &AsyncEmitter{
		next:  next,
		log:   log,
		queue: make(chan *domain.Event, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Emit queues event without blocking. ctx is not used: the event outlives the request that produced it.
func (a *AsyncEmitter) Emit(_ context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- event:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *AsyncEmitter) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until the queued ones are forwarded or ctx is done.
func (a *AsyncEmitter) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *AsyncEmitter) run() {
	defer close(a.done)
	for event := range a.queue {
		if a.next == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		if err := a.next.Emit(ctx, event); err != nil {
			a.log.Warn("telemetry: emit failed", zap.String("event_type", event.EventType), zap.Error(err))
		}
		cancel()
	}
}
