package productsvc

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/shop/internal/service/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// ProductService is a service for managing the catalog.
type ProductService struct {
	products        iproductrepo.IProductRepository
	ledger          *inventorysvc.Ledger
	cache           *cache.Cache
	ttl             time.Duration
	defaultCurrency currency.Currency
}

// option is a function that configures the ProductService.
type option func(*ProductService)

// MustNewProductService creates a new ProductService.
func MustNewProductService(opts ...option) *ProductService {
	s := &ProductService{
		ttl:             time.Hour,
		defaultCurrency: currency.CurrencyUSD,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.products == nil {
		panic("productsvc: product repository is required")
	}
	if s.ledger == nil {
		s.ledger = inventorysvc.MustNewLedger(
			inventorysvc.WithProductRepository(s.products),
			inventorysvc.WithCache(s.cache),
		)
	}

	return s
}

// WithProductRepository sets the product repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *ProductService) {
		s.products = repo
	}
}

// WithLedger sets the inventory ledger used for stock adjustments.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLedger(l *inventorysvc.Ledger) option {
	return func(s *ProductService) {
		s.ledger = l
	}
}

// WithCache sets the read cache and how long products stay in it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(c *cache.Cache, ttl time.Duration) option {
	return func(s *ProductService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithDefaultCurrency sets the currency of products created without one.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDefaultCurrency(c currency.Currency) option {
	return func(s *ProductService) {
		s.defaultCurrency = c
	}
}

// CreateProduct adds a product with its initial stock.
func (s *ProductService) CreateProduct(
	ctx context.Context,
	in product.CreateProductInput,
) (product.Product, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return product.Product{}, err
	}

	cur := s.defaultCurrency
	if in.Currency != "" {
		parsed, err := currency.ParseCurrency(in.Currency)
		if err != nil {
			return product.Product{}, errs.Validation("unsupported currency %q", in.Currency)
		}
		cur = parsed
	}

	now := time.Now().UTC()
	p := product.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Currency:    cur,
		Category:    in.Category,
		Inventory:   in.Inventory,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, p); err != nil {
		return product.Product{}, err
	}

	return p, nil
}

// GetProduct returns a product by id.
func (s *ProductService) GetProduct(ctx context.Context, id string) (product.Product, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "ProductService.GetProduct")
	defer span.End()

	key := cache.ProductKey(id)
	if p, ok := cache.Lookup[product.Product](s.cache, key); ok {
		return p, nil
	}

	p, err := s.products.Get(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	s.cache.Set(key, p, s.ttl)

	return p, nil
}

// GetProducts returns the existing products among ids keyed by id.
func (s *ProductService) GetProducts(ctx context.Context, ids []string) (map[string]product.Product, error) {
	result := make(map[string]product.Product, len(ids))

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := cache.Lookup[product.Product](s.cache, cache.ProductKey(id)); ok {
			result[id] = p
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	products, err := s.products.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
		s.cache.Set(cache.ProductKey(p.ID), p, s.ttl)
	}

	return result, nil
}

// ListProducts returns a filtered page of products ordered by name.
func (s *ProductService) ListProducts(
	ctx context.Context,
	filter product.Filter,
	page pagination.Page,
) (pagination.Result[product.Product], error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "ProductService.ListProducts")
	defer span.End()

	if filter.MinPriceCents != nil && filter.MaxPriceCents != nil &&
		*filter.MinPriceCents > *filter.MaxPriceCents {
		return pagination.Result[product.Product]{}, errs.Validation("minPrice must not exceed maxPrice")
	}

	page = page.Normalize()
	rows, total, err := s.products.List(ctx, filter, page.Limit+1, page.Offset())
	if err != nil {
		return pagination.Result[product.Product]{}, err
	}

	return pagination.NewResult(rows, total, page), nil
}

// UpdateProduct applies a partial update. Stock is untouched.
func (s *ProductService) UpdateProduct(
	ctx context.Context,
	id string,
	in product.UpdateProductInput,
) (product.Product, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return product.Product{}, err
	}

	current, err := s.products.Get(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	next := in.Apply(current)
	next.UpdatedAt = time.Now().UTC()

	updated, err := s.products.Update(ctx, next)
	if err != nil {
		return product.Product{}, err
	}
	s.cache.Invalidate(cache.ProductKey(id))

	return updated, nil
}

// AdjustInventory restocks (positive delta) or writes off (negative delta) units.
func (s *ProductService) AdjustInventory(ctx context.Context, id string, delta int) (product.Product, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "ProductService.AdjustInventory")
	defer span.End()

	return s.ledger.Adjust(ctx, id, delta)
}

// DeleteProduct removes a product that no active order references.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(cache.ProductKey(id))

	return nil
}
