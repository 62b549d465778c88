// Package inventorysvc is the only place product stock changes.
//
// Every change is a single conditional increment or decrement in the store,
// so concurrent reservations can never drive stock below zero.
package inventorysvc

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Ledger reserves and releases product stock.
type Ledger struct {
	products iproductrepo.IProductRepository
	cache    *cache.Cache
}

// option is a function that configures the Ledger.
type option func(*Ledger)

// MustNewLedger creates a new Ledger.
func MustNewLedger(opts ...option) *Ledger {
	l := &Ledger{}
	for _, opt := range opts {
		opt(l)
	}

	if l.products == nil {
		panic("inventorysvc: product repository is required")
	}

	return l
}

// WithProductRepository sets the repository stock is adjusted through.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(l *Ledger) {
		l.products = repo
	}
}

// WithCache sets the cache whose product entries are invalidated on every
// change made outside a unit of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(c *cache.Cache) option {
	return func(l *Ledger) {
		l.cache = c
	}
}

// WithRepository returns a Ledger that adjusts stock through repo, typically
// the product repository of an open unit of work. It never touches the cache:
// the caller invalidates the products once the work commits.
func (l *Ledger) WithRepository(repo iproductrepo.IProductRepository) *Ledger {
	return &Ledger{products: repo}
}

func startSpan(ctx context.Context, name, productID string, qty int) (context.Context, trace.Span) {
	return otel.Tracer("shop-svc").Start(ctx, name, trace.WithAttributes(
		attribute.String("product.id", productID),
		attribute.Int("quantity", qty),
	))
}

// Reserve takes qty units of a product out of stock and returns the product as of
// that instant. Its price is the price the reservation was made at.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (product.Product, error) {
	ctx, span := startSpan(ctx, "Ledger.Reserve", productID, qty)
	defer span.End()

	if qty < 1 {
		return product.Product{}, errs.Validation("quantity must be at least 1")
	}

	p, err := l.products.AdjustInventory(ctx, productID, -qty)
	if err != nil {
		return product.Product{}, fmt.Errorf("reserve %d of product %s: %w", qty, productID, err)
	}
	l.cache.Invalidate(cache.ProductKey(productID))

	return p, nil
}

// Release returns qty units of a product to stock.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	ctx, span := startSpan(ctx, "Ledger.Release", productID, qty)
	defer span.End()

	if qty < 1 {
		return errs.Validation("quantity must be at least 1")
	}

	if _, err := l.products.AdjustInventory(ctx, productID, qty); err != nil {
		return fmt.Errorf("release %d of product %s: %w", qty, productID, err)
	}
	l.cache.Invalidate(cache.ProductKey(productID))

	return nil
}

// Adjust applies a restock (positive) or write-off (negative) delta.
func (l *Ledger) Adjust(ctx context.Context, productID string, delta int) (product.Product, error) {
	ctx, span := startSpan(ctx, "Ledger.Adjust", productID, delta)
	defer span.End()

	if delta == 0 {
		return product.Product{}, errs.Validation("delta must not be zero")
	}

	p, err := l.products.AdjustInventory(ctx, productID, delta)
	if err != nil {
		return product.Product{}, fmt.Errorf("adjust product %s by %d: %w", productID, delta, err)
	}
	l.cache.Invalidate(cache.ProductKey(productID))

	return p, nil
}
