package order

import (
	"errors"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// HasShipped reports whether tracking data is meaningful in s.
func (s Status) HasShipped() bool {
	return s == StatusShipped || s == StatusDelivered
}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}

	return "", ErrInvalidStatus
}

// Item is a line item. PriceCents is the unit price captured when the order was placed.
type Item struct {
	ProductID  string
	Quantity   int
	PriceCents int64
}

// Order represents a customer order.
type Order struct {
	ID              string
	CustomerID      string
	Status          Status
	Items           []Item
	ShippingAddress *address.Address
	TotalCents      int64
	Currency        currency.Currency
	TrackingNumber  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]Item(nil), o.Items...)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		c.ShippingAddress = &addr
	}

	return c
}

// ProductIDs returns the distinct product ids of o's line items in item order.
func (o Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	return ids
}

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"min=1"`
}

// CreateOrderInput is the input for placing an order.
type CreateOrderInput struct {
	CustomerID      string           `validate:"required"`
	Items           []ItemInput      `validate:"required,min=1,max=100,dive"`
	ShippingAddress *address.Address `validate:"omitempty"`
}

// Update is a combined status and shipping change, applied address first.
type Update struct {
	Status          *string
	ShippingAddress *address.Address
}
