package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
)

// IOrderRepository defines the interface for order storage.
type IOrderRepository interface {
	// Create stores an order with its line items; fails with errs.ErrCustomerNotFound
	// when the customer no longer exists
	Create(ctx context.Context, o order.Order) error

	// Get returns an order by id or errs.ErrOrderNotFound
	Get(ctx context.Context, id string) (order.Order, error)

	// List returns orders matching filter newest first and the total count
	List(ctx context.Context, filter order.Filter, limit, offset int) ([]order.Order, int, error)

	// UpdateStatus sets the status only if it currently equals from.
	// It reports false when the stored status differs.
	UpdateStatus(ctx context.Context, id string, from, to order.Status, at time.Time) (bool, error)

	// UpdateShippingAddress changes the address only while the order is not terminal.
	// It reports false otherwise.
	UpdateShippingAddress(ctx context.Context, id string, addr address.Address, at time.Time) (bool, error)

	// PurchasedProductIDs returns the distinct product ids of a customer's non-cancelled orders
	PurchasedProductIDs(ctx context.Context, customerID string) ([]string, error)
}
