package memory

import (
	"context"
	"sort"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
)

// OutboxRepository stores outbox messages in a Store.
type OutboxRepository struct {
	sess session
}

func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{sess: session{store: store}}
}

func (r *OutboxRepository) Enqueue(_ context.Context, msg outbox.Message) error {
	r.sess.lock()
	defer r.sess.unlock()

	r.sess.store.outboxSeq++
	msg.ID = r.sess.store.outboxSeq
	r.sess.store.outbox[msg.ID] = msg
	r.sess.record(func() { delete(r.sess.store.outbox, msg.ID) })

	return nil
}

func (r *OutboxRepository) Due(_ context.Context, now time.Time, limit int) ([]outbox.Message, error) {
	r.sess.lock()
	defer r.sess.unlock()

	messages := make([]outbox.Message, 0)
	for _, msg := range r.sess.store.outbox {
		if !msg.NextRetryAt.After(now) && !msg.Exhausted() {
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].NextRetryAt.Equal(messages[j].NextRetryAt) {
			return messages[i].NextRetryAt.Before(messages[j].NextRetryAt)
		}

		return messages[i].ID < messages[j].ID
	})

	return paginate(messages, limit, 0), nil
}

func (r *OutboxRepository) Ack(_ context.Context, msg outbox.Message) error {
	r.sess.lock()
	defer r.sess.unlock()

	prev, ok := r.sess.store.outbox[msg.ID]
	if !ok {
		return nil
	}
	delete(r.sess.store.outbox, msg.ID)
	r.sess.record(func() { r.sess.store.outbox[msg.ID] = prev })

	return nil
}

func (r *OutboxRepository) Reschedule(_ context.Context, msg outbox.Message) error {
	r.sess.lock()
	defer r.sess.unlock()

	stored, ok := r.sess.store.outbox[msg.ID]
	if !ok {
		return nil
	}
	prev := stored

	stored.RetryCount = msg.RetryCount
	stored.LastError = msg.LastError
	stored.NextRetryAt = msg.NextRetryAt
	stored.UpdatedAt = msg.UpdatedAt
	r.sess.store.outbox[msg.ID] = stored
	r.sess.record(func() { r.sess.store.outbox[msg.ID] = prev })

	return nil
}
