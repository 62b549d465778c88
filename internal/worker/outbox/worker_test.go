package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/dal/repositories/memory"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	fail bool
	sent []string
}

func (p *recordingPublisher) Publish(_, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return errors.New("broker unreachable")
	}
	p.sent = append(p.sent, routingKey+":"+msg.MessageId)

	return nil
}

func enqueue(t *testing.T, repo *memory.OutboxRepository, id, eventType string) {
	t.Helper()

	msg, err := outbox.NewJSONMessage("shop.orders", eventType, id, map[string]string{"orderId": id}, 3, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), msg))
}

func TestProcessMessagesPublishesAndDeletes(t *testing.T) {
	repo := memory.NewOutboxRepository(memory.NewStore())
	enqueue(t, repo, "o1", "order.created")
	enqueue(t, repo, "o2", "order.cancelled")
	pub := &recordingPublisher{}

	w := NewWorker(repo, pub)
	assert.Equal(t, 2, w.processMessages(context.Background()))
	assert.ElementsMatch(t, []string{"order.created:o1", "order.cancelled:o2"}, pub.sent)

	pending, err := repo.Due(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessMessagesSchedulesRetry(t *testing.T) {
	repo := memory.NewOutboxRepository(memory.NewStore())
	enqueue(t, repo, "o1", "order.created")
	pub := &recordingPublisher{fail: true}

	w := NewWorker(repo, pub)
	assert.Zero(t, w.processMessages(context.Background()))

	pending, err := repo.Due(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "message must wait for its backoff")

	pub.fail = false
	enqueue(t, repo, "o2", "order.created")
	assert.Equal(t, 1, w.processMessages(context.Background()))
	assert.Equal(t, []string{"order.created:o2"}, pub.sent)
}

func TestStartStops(t *testing.T) {
	w := NewWorker(memory.NewOutboxRepository(memory.NewStore()), &recordingPublisher{})
	done := make(chan struct{})

	go func() {
		w.Start(context.Background())
		close(done)
	}()
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
