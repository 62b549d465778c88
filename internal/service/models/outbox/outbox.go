package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

const DefaultMaxRetries = 5

// Message is an event waiting to be published to the broker.
type Message struct {
	ID           int64
	AggregateID  string
	EventType    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// NewJSONMessage marshals payload into a message routed by eventType on exchange.
func NewJSONMessage(
	exchange, eventType, aggregateID string,
	payload any,
	maxRetries int,
	now time.Time,
) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return Message{
		AggregateID:  aggregateID,
		EventType:    eventType,
		ExchangeName: exchange,
		RoutingKey:   eventType,
		Payload:      body,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}, nil
}

// Failed returns msg after one more failed attempt. The delay doubles with
// every attempt starting from twice base.
func (m Message) Failed(err error, now time.Time, base time.Duration) Message {
	m.RetryCount++
	m.LastError = err.Error()
	m.UpdatedAt = now
	m.NextRetryAt = now.Add(base << m.RetryCount)

	return m
}

// Exhausted reports whether msg will not be attempted again.
func (m Message) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}
