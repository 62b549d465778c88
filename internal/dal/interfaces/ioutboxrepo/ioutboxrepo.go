package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
)

// IOutboxRepository stores order events until they reach the broker.
type IOutboxRepository interface {
	// Enqueue stores an event, sharing the caller's transaction when there is one
	Enqueue(ctx context.Context, msg outbox.Message) error

	// Due returns events whose next attempt is not after now
	Due(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error)

	// Ack removes an event once it is published
	Ack(ctx context.Context, msg outbox.Message) error

	// Reschedule stores the attempt count, error and next attempt of msg
	Reschedule(ctx context.Context, msg outbox.Message) error
}
