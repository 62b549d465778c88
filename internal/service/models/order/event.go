package order

import "time"

// EventType names an order event published through the outbox.
type EventType string

const (
	EventCreated         EventType = "order.created"
	EventStatusChanged   EventType = "order.status_changed"
	EventCancelled       EventType = "order.cancelled"
	EventShippingUpdated EventType = "order.shipping_updated"
)

// Event is the payload of an order event.
type Event struct {
	Type           EventType `json:"type"`
	OrderID        string    `json:"orderId"`
	CustomerID     string    `json:"customerId"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previousStatus,omitempty"`
	TotalCents     int64     `json:"totalAmountCents"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// NewEvent builds an event describing o.
func NewEvent(t EventType, o Order, previous Status) Event {
	return Event{
		Type:           t,
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		Status:         o.Status,
		PreviousStatus: previous,
		TotalCents:     o.TotalCents,
		Currency:       o.Currency.String(),
		OccurredAt:     o.UpdatedAt,
	}
}
