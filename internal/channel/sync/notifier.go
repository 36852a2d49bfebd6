// Package sync tells relayer devices that their channel changed, so they sync without waiting for their poll.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/channel/domain"
)

// Notifier announces a channel change to the devices behind it.
type Notifier interface {
	Notify(ctx context.Context, ch *domain.Channel) error
}

// Message is the payload published for a channel.
type Message struct {
	ChannelUUID string `json:"channel_uuid"`
	OrgID       string `json:"org_id"`
}

// RedisNotifier publishes a Message on "<prefix>:<channel uuid>".
type RedisNotifier struct {
	rdb    redis.UniversalClient
	prefix string
	log    *zap.Logger
}

// NewRedisNotifier connects to the redis at url and checks it answers.
func NewRedisNotifier(ctx context.Context, url, prefix string, log *zap.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisNotifierWithClient(rdb, prefix, log), nil
}

// NewRedisNotifierWithClient returns a notifier publishing through rdb.
func NewRedisNotifierWithClient(rdb redis.UniversalClient, prefix string, log *zap.Logger) *RedisNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisNotifier{rdb: rdb, prefix: prefix, log: log.Named("channel_sync")}
}

// Topic returns the pub/sub channel devices of channelUUID subscribe to.
func (n *RedisNotifier) Topic(channelUUID string) string {
	return n.prefix + ":" + channelUUID
}

func (n *RedisNotifier) Notify(ctx context.Context, ch *domain.Channel) error {
	raw, err := json.Marshal(Message{ChannelUUID: ch.UUID, OrgID: ch.OrgID})
	if err != nil {
		return err
	}
	receivers, err := n.rdb.Publish(ctx, n.Topic(ch.UUID), raw).Result()
	if err != nil {
		return fmt.Errorf("publish channel sync: %w", err)
	}
	n.log.Debug("channel sync published", zap.String("channel_uuid", ch.UUID), zap.Int64("receivers", receivers))
	return nil
}

// Close releases the redis connection.
func (n *RedisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}

// NotifyAsync runs n.Notify in a new goroutine with a 5s timeout. Failures are logged and never returned;
// devices still sync on their next poll. A nil n is a no-op.
func NotifyAsync(n Notifier, log *zap.Logger, ch *domain.Channel) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Notify(ctx, ch); err != nil && log != nil {
			log.Warn("channel sync notify failed", zap.String("channel_uuid", ch.UUID), zap.Error(err))
		}
	}()
}
