package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-messaging-api/backend/internal/channel/domain"
)

func TestRedisNotifier_Notify(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	n := NewRedisNotifierWithClient(rdb, "channel-sync", nil)
	sub := rdb.Subscribe(ctx, n.Topic("ch-1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, n.Notify(ctx, &domain.Channel{UUID: "ch-1", OrgID: "org-1"}))

	select {
	case m := <-sub.Channel():
		assert.Equal(t, "channel-sync:ch-1", m.Channel)
		var got Message
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &got))
		assert.Equal(t, Message{ChannelUUID: "ch-1", OrgID: "org-1"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisNotifier_NotifyFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	n := NewRedisNotifierWithClient(rdb, "channel-sync", nil)
	mr.Close()

	assert.Error(t, n.Notify(context.Background(), &domain.Channel{UUID: "ch-1", OrgID: "org-1"}))
}

func TestNewRedisNotifier(t *testing.T) {
	mr := miniredis.RunT(t)
	n, err := NewRedisNotifier(context.Background(), "redis://"+mr.Addr(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "p:x", n.Topic("x"))
	assert.NoError(t, n.Close())

	_, err = NewRedisNotifier(context.Background(), "not a url", "p", nil)
	assert.Error(t, err)
}

type notifyFunc func(ctx context.Context, ch *domain.Channel) error

func (f notifyFunc) Notify(ctx context.Context, ch *domain.Channel) error { return f(ctx, ch) }

func TestNotifyAsync(t *testing.T) {
	done := make(chan string, 1)
	NotifyAsync(notifyFunc(func(_ context.Context, ch *domain.Channel) error {
		done <- ch.UUID
		return nil
	}), nil, &domain.Channel{UUID: "ch-1"})

	select {
	case got := <-done:
		assert.Equal(t, "ch-1", got)
	case <-time.After(time.Second):
		t.Fatal("notify not called")
	}
	NotifyAsync(nil, nil, &domain.Channel{UUID: "ch-1"})
}
