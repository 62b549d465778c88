package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/jackc/pgx/v5"
)

const table = "outbox"

var eventColumns = []string{
	"aggregate_id",
	"event_type",
	"exchange_name",
	"routing_key",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// OutboxRepository keeps order events in the outbox table until the worker
// publishes them. Inside a unit of work it shares the order transaction.
type OutboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

func NewOutboxRepository(conn postgres.GenericConn) *OutboxRepository {
	return &OutboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Enqueue stores an order event for later delivery.
func (r *OutboxRepository) Enqueue(ctx context.Context, msg outbox.Message) error {
	query, args, err := r.sb.Insert(table).
		Columns(eventColumns...).
		Values(
			msg.AggregateID,
			msg.EventType,
			msg.ExchangeName,
			msg.RoutingKey,
			msg.Payload,
			msg.ContentType,
			msg.RetryCount,
			msg.MaxRetries,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
			msg.NextRetryAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build enqueue query for %s: %w", describe(msg), err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", describe(msg), err)
	}

	return nil
}

// Due returns up to limit events whose next attempt is not after now, oldest
// schedule first. Events that used up their retries are left for inspection.
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error) {
	query, args, err := r.sb.Select(append([]string{"id"}, eventColumns...)...).
		From(table).
		Where(sq.LtOrEq{"next_retry_at": now}).
		Where(sq.Expr("retry_count < max_retries")).
		OrderBy("next_retry_at ASC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build due events query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query due order events: %w", err)
	}
	defer rows.Close()

	messages := make([]outbox.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due order events: %w", err)
	}

	return messages, nil
}

// Ack drops a published event.
func (r *OutboxRepository) Ack(ctx context.Context, msg outbox.Message) error {
	query, args, err := r.sb.Delete(table).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build ack query for %s: %w", describe(msg), err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to ack %s: %w", describe(msg), err)
	}

	return nil
}

// Reschedule records a failed delivery attempt carried by msg.
func (r *OutboxRepository) Reschedule(ctx context.Context, msg outbox.Message) error {
	query, args, err := r.sb.Update(table).
		Set("retry_count", msg.RetryCount).
		Set("last_error", msg.LastError).
		Set("next_retry_at", msg.NextRetryAt).
		Set("updated_at", msg.UpdatedAt).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build reschedule query for %s: %w", describe(msg), err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to reschedule %s after attempt %d: %w", describe(msg), msg.RetryCount, err)
	}

	return nil
}

func scanMessage(row pgx.Row) (outbox.Message, error) {
	var msg outbox.Message
	err := row.Scan(
		&msg.ID,
		&msg.AggregateID,
		&msg.EventType,
		&msg.ExchangeName,
		&msg.RoutingKey,
		&msg.Payload,
		&msg.ContentType,
		&msg.RetryCount,
		&msg.MaxRetries,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.NextRetryAt,
	)
	if err != nil {
		return outbox.Message{}, fmt.Errorf("failed to scan order event: %w", err)
	}

	return msg, nil
}

// describe names an event the way operators search for it: event type and order id.
func describe(msg outbox.Message) string {
	return fmt.Sprintf("%s event for order %s", msg.EventType, msg.AggregateID)
}
