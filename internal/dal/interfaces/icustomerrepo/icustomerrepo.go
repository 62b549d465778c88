package icustomerrepo

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
)

// ICustomerRepository defines the interface for customer storage.
type ICustomerRepository interface {
	// Create stores a new customer; fails with errs.ErrDuplicateEmail on an email collision
	Create(ctx context.Context, c customer.Customer) error

	// Get returns a customer by id or errs.ErrCustomerNotFound
	Get(ctx context.Context, id string) (customer.Customer, error)

	// GetMany returns the customers that exist among ids; missing ids are skipped
	GetMany(ctx context.Context, ids []string) ([]customer.Customer, error)

	// List returns customers newest first and the total count
	List(ctx context.Context, limit, offset int) ([]customer.Customer, int, error)

	// Update overwrites the mutable fields of an existing customer
	Update(ctx context.Context, c customer.Customer) error

	// Delete removes a customer that no order references; fails with errs.ErrCustomerHasOrders otherwise
	Delete(ctx context.Context, id string) error
}
