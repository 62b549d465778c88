package iproductrepo

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/service/models/product"
)

// IProductRepository defines the interface for product storage.
type IProductRepository interface {
	// Create stores a new product
	Create(ctx context.Context, p product.Product) error

	// Get returns a product by id or errs.ErrProductNotFound
	Get(ctx context.Context, id string) (product.Product, error)

	// GetMany returns the products that exist among ids; missing ids are skipped
	GetMany(ctx context.Context, ids []string) ([]product.Product, error)

	// List returns products matching filter ordered by name and the total count
	List(ctx context.Context, filter product.Filter, limit, offset int) ([]product.Product, int, error)

	// Update overwrites every field except inventory and returns the stored product
	Update(ctx context.Context, p product.Product) (product.Product, error)

	// AdjustInventory atomically adds delta to the stock. It fails with
	// errs.ErrInsufficientInventory when the result would be negative.
	AdjustInventory(ctx context.Context, id string, delta int) (product.Product, error)

	// Delete removes a product no active order references; fails with errs.ErrProductInUse otherwise
	Delete(ctx context.Context, id string) error
}
