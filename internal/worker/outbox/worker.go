package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

type publisher interface {
	Publish(exchange, routingKey string, msg amqp.Publishing) error
}

// Worker processes messages from the outbox table.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	publisher     publisher
	pollInterval  time.Duration
	batchSize     int
	concurrency   int
	retryInterval time.Duration
	stopCh        chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	concurrency := viper.GetInt("rabbitmq.outbox.concurrency")
	if concurrency == 0 {
		concurrency = 8
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		concurrency:   concurrency,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		stopCh:        make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages publishes one batch of due messages and returns how many were delivered.
func (w *Worker) processMessages(ctx context.Context) int {
	messages, err := w.outboxRepo.Due(ctx, time.Now(), w.batchSize)
	if err != nil {
		slog.Error("Failed to load due order events", "error", err)

		return 0
	}

	if len(messages) == 0 {
		return 0
	}

	slog.Info("Publishing order events", "count", len(messages))

	delivered := make([]bool, len(messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, msg := range messages {
		g.Go(func() error {
			delivered[i] = w.deliver(gctx, msg)

			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range delivered {
		if ok {
			n++
		}
	}

	return n
}

func (w *Worker) deliver(ctx context.Context, msg outbox.Message) bool {
	err := w.publisher.Publish(msg.ExchangeName, msg.RoutingKey, amqp.Publishing{
		ContentType: msg.ContentType,
		MessageId:   msg.AggregateID,
		Type:        msg.EventType,
		Timestamp:   msg.CreatedAt,
		Body:        msg.Payload,
	})
	if err != nil {
		failed := msg.Failed(err, time.Now(), w.retryInterval)
		if failed.Exhausted() {
			slog.Error("Order event exhausted its retries",
				"outbox_id", msg.ID,
				"order_id", msg.AggregateID,
				"event_type", msg.EventType,
				"retry_count", failed.RetryCount,
				"error", err,
			)
		} else {
			slog.Warn("Failed to publish order event, will retry",
				"outbox_id", msg.ID,
				"order_id", msg.AggregateID,
				"event_type", msg.EventType,
				"retry_count", failed.RetryCount,
				"next_retry", failed.NextRetryAt,
				"error", err,
			)
		}

		if err := w.outboxRepo.Reschedule(ctx, failed); err != nil {
			slog.Error("Failed to reschedule order event", "outbox_id", msg.ID, "error", err)
		}

		return false
	}

	if err := w.outboxRepo.Ack(ctx, msg); err != nil {
		slog.Error("Failed to drop order event after publishing it",
			"outbox_id", msg.ID,
			"order_id", msg.AggregateID,
			"error", err,
		)

		return true
	}
	slog.Debug("Order event published", "outbox_id", msg.ID, "order_id", msg.AggregateID, "event_type", msg.EventType)

	return true
}
