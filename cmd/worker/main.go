// Worker consumes dispatch events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, DISPATCH_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tenant-messaging-api/backend/internal/config"
	"tenant-messaging-api/backend/internal/logger"
	"tenant-messaging-api/backend/internal/telemetry/loki"
)

const (
	batchSize  = 100
	batchWait  = 2 * time.Second
	maxBackoff = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.Env, cfg.LogLevel, "msgapi-worker")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		zlog.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		zlog.Fatal("worker: LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.DispatchKafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	client, err := loki.NewClient(cfg.LokiURL, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		zlog.Fatal("worker: loki client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info("worker: consuming",
		zap.String("topic", cfg.DispatchKafkaTopic), zap.String("group", cfg.KafkaGroupID), zap.String("loki", cfg.LokiURL))

	for ctx.Err() == nil {
		batch := fetchBatch(ctx, reader, zlog)
		if len(batch) == 0 {
			continue
		}
		entries := make([]loki.Entry, 0, len(batch))
		now := time.Now()
		for _, m := range batch {
			entries = append(entries, loki.EntryFromDispatch(m.Value, now))
		}

		if err := pushWithRetry(ctx, client, entries, zlog); err != nil {
			// Uncommitted: the group redelivers the batch after restart.
			zlog.Warn("worker: batch not pushed", zap.Int("events", len(batch)), zap.Error(err))
			break
		}
		if err := reader.CommitMessages(context.Background(), batch...); err != nil {
			zlog.Warn("worker: commit failed", zap.Int64("offset", batch[len(batch)-1].Offset), zap.Error(err))
		}
	}
	zlog.Info("worker: stopped")
}

// fetchBatch reads up to batchSize messages, returning early once batchWait passes after the first one.
func fetchBatch(ctx context.Context, reader *kafka.Reader, zlog *zap.Logger) []kafka.Message {
	var batch []kafka.Message
	fetchCtx := ctx
	var cancel context.CancelFunc = func() {}
	defer func() { cancel() }()
	for len(batch) < batchSize {
		msg, err := reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() == nil && fetchCtx.Err() == nil {
				zlog.Warn("worker: kafka fetch error", zap.Error(err))
				time.Sleep(time.Second)
			}
			return batch
		}
		batch = append(batch, msg)
		if len(batch) == 1 {
			fetchCtx, cancel = context.WithTimeout(ctx, batchWait)
		}
	}
	return batch
}

// pushWithRetry pushes entries until Loki accepts them, backing off between attempts. It gives up only when ctx
// is done.
func pushWithRetry(ctx context.Context, client *loki.Client, entries []loki.Entry, zlog *zap.Logger) error {
	backoff := time.Second
	for attempt := 1; ; attempt++ {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.Push(pushCtx, entries)
		cancel()
		if err == nil {
			return nil
		}
		zlog.Warn("worker: loki push failed", zap.Int("attempt", attempt), zap.Duration("retry_in", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
