package customersvc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// CustomerService is a service for managing customers.
type CustomerService struct {
	customers icustomerrepo.ICustomerRepository
	cache     *cache.Cache
	ttl       time.Duration
}

// option is a function that configures the CustomerService.
type option func(*CustomerService)

// MustNewCustomerService creates a new CustomerService.
func MustNewCustomerService(opts ...option) *CustomerService {
	s := &CustomerService{ttl: time.Hour}
	for _, opt := range opts {
		opt(s)
	}

	if s.customers == nil {
		panic("customersvc: customer repository is required")
	}

	return s
}

// WithCustomerRepository sets the customer repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCustomerRepository(repo icustomerrepo.ICustomerRepository) option {
	return func(s *CustomerService) {
		s.customers = repo
	}
}

// WithCache sets the read cache and how long customers stay in it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(c *cache.Cache, ttl time.Duration) option {
	return func(s *CustomerService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// CreateCustomer registers a new customer. Emails are unique regardless of case.
func (s *CustomerService) CreateCustomer(
	ctx context.Context,
	in customer.CreateCustomerInput,
) (customer.Customer, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "CustomerService.CreateCustomer")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return customer.Customer{}, err
	}

	now := time.Now().UTC()
	c := customer.Customer{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     customer.NormalizeEmail(in.Email),
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Address != nil {
		addr := *in.Address
		c.Address = &addr
	}

	if err := s.customers.Create(ctx, c); err != nil {
		return customer.Customer{}, err
	}

	return c, nil
}

// GetCustomer returns a customer by id.
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (customer.Customer, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "CustomerService.GetCustomer")
	defer span.End()

	key := cache.CustomerKey(id)
	if c, ok := cache.Lookup[customer.Customer](s.cache, key); ok {
		return c, nil
	}

	c, err := s.customers.Get(ctx, id)
	if err != nil {
		return customer.Customer{}, err
	}
	s.cache.Set(key, c, s.ttl)

	return c, nil
}

// GetCustomers returns the existing customers among ids keyed by id.
func (s *CustomerService) GetCustomers(ctx context.Context, ids []string) (map[string]customer.Customer, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "CustomerService.GetCustomers")
	defer span.End()

	result := make(map[string]customer.Customer, len(ids))

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if c, ok := cache.Lookup[customer.Customer](s.cache, cache.CustomerKey(id)); ok {
			result[id] = c
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	customers, err := s.customers.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		result[c.ID] = c
		s.cache.Set(cache.CustomerKey(c.ID), c, s.ttl)
	}

	return result, nil
}

// ListCustomers returns a page of customers, newest first.
func (s *CustomerService) ListCustomers(
	ctx context.Context,
	page pagination.Page,
) (pagination.Result[customer.Customer], error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "CustomerService.ListCustomers")
	defer span.End()

	page = page.Normalize()
	rows, total, err := s.customers.List(ctx, page.Limit+1, page.Offset())
	if err != nil {
		return pagination.Result[customer.Customer]{}, err
	}

	return pagination.NewResult(rows, total, page), nil
}

// UpdateCustomer applies a partial update.
func (s *CustomerService) UpdateCustomer(
	ctx context.Context,
	id string,
	in customer.UpdateCustomerInput,
) (customer.Customer, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "CustomerService.UpdateCustomer")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return customer.Customer{}, err
	}

	current, err := s.customers.Get(ctx, id)
	if err != nil {
		return customer.Customer{}, err
	}

	updated := in.Apply(current)
	updated.UpdatedAt = time.Now().UTC()
	if err := s.customers.Update(ctx, updated); err != nil {
		return customer.Customer{}, err
	}
	s.cache.Invalidate(cache.CustomerKey(id))

	return updated, nil
}

// DeleteCustomer removes a customer who has never placed an order.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "CustomerService.DeleteCustomer")
	defer span.End()

	if err := s.customers.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(cache.CustomerKey(id), cache.RecommendationsKey(id))

	return nil
}

// CustomerExists reports whether a customer with id exists.
func (s *CustomerService) CustomerExists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetCustomer(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrCustomerNotFound):
		return false, nil
	default:
		return false, err
	}
}
