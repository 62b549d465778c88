// Package ordersvc owns the order lifecycle.
//
// An order is pending when placed and moves freely between the non-terminal
// states. Delivered and cancelled are terminal. Stock reserved by CreateOrder
// is returned to inventory exactly once, by the transition into cancelled.
package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/money"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/shop/internal/service/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxTransitionAttempts bounds the reload and compare-and-swap loop of a status change.
const maxTransitionAttempts = 3

type trackingNumberGenerator interface {
	GenerateTrackingNumber() string
}

// EventsConfig enables order events. Every state change then writes an outbox
// message in the same transaction as the change itself.
type EventsConfig struct {
	Exchange   string
	MaxRetries int
}

// OrderService is a service for managing orders.
type OrderService struct {
	customers icustomerrepo.ICustomerRepository
	orders    iorderrepo.IOrderRepository
	products  iproductrepo.IProductRepository
	ledger    *inventorysvc.Ledger
	newUOW    iuow.Factory
	shipping  trackingNumberGenerator
	cache     *cache.Cache
	ttl       time.Duration
	events    *EventsConfig
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{ttl: 5 * time.Minute}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.customers == nil:
		panic("ordersvc: customer repository is required")
	case s.orders == nil:
		panic("ordersvc: order repository is required")
	case s.products == nil:
		panic("ordersvc: product repository is required")
	case s.ledger == nil:
		panic("ordersvc: inventory ledger is required")
	case s.newUOW == nil:
		panic("ordersvc: unit of work factory is required")
	case s.shipping == nil:
		panic("ordersvc: shipping provider is required")
	}

	return s
}

// WithCustomerRepository sets the customer repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCustomerRepository(repo icustomerrepo.ICustomerRepository) option {
	return func(s *OrderService) {
		s.customers = repo
	}
}

// WithOrderRepository sets the repository used for reads outside a unit of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orders = repo
	}
}

// WithProductRepository sets the repository order details are resolved through.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *OrderService) {
		s.products = repo
	}
}

// WithLedger sets the inventory ledger.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLedger(l *inventorysvc.Ledger) option {
	return func(s *OrderService) {
		s.ledger = l
	}
}

// WithUnitOfWork sets the unit of work factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(f iuow.Factory) option {
	return func(s *OrderService) {
		s.newUOW = f
	}
}

// WithShippingProvider sets the tracking number source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithShippingProvider(p trackingNumberGenerator) option {
	return func(s *OrderService) {
		s.shipping = p
	}
}

// WithCache sets the read cache and how long orders stay in it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(c *cache.Cache, ttl time.Duration) option {
	return func(s *OrderService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithEvents enables outbox events. An empty exchange leaves them disabled.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEvents(cfg EventsConfig) option {
	return func(s *OrderService) {
		if cfg.Exchange == "" {
			return
		}
		s.events = &cfg
	}
}

func startSpan(ctx context.Context, name, orderID string) (context.Context, trace.Span) {
	return otel.Tracer("shop-svc").Start(ctx, name, trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
}

// CreateOrder reserves stock for every item and persists a pending order.
// Either every item is reserved and the order exists, or nothing changed.
func (s *OrderService) CreateOrder(ctx context.Context, in order.CreateOrderInput) (order.Order, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("customer.id", in.CustomerID),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return order.Order{}, err
	}

	c, err := s.customers.Get(ctx, in.CustomerID)
	if err != nil {
		return order.Order{}, err
	}

	items := make([]order.Item, 0, len(in.Items))
	var cur currency.Currency
	for _, req := range in.Items {
		p, err := s.ledger.Reserve(ctx, req.ProductID, req.Quantity)
		if err != nil {
			s.releaseAll(ctx, items)

			return order.Order{}, err
		}
		items = append(items, order.Item{
			ProductID:  p.ID,
			Quantity:   req.Quantity,
			PriceCents: p.PriceCents,
		})

		if cur == "" {
			cur = p.Currency
		} else if p.Currency != cur {
			s.releaseAll(ctx, items)

			return order.Order{}, errs.Validation(
				"all items must share one currency, got %s and %s", cur, p.Currency,
			)
		}
	}

	total, err := orderTotal(items)
	if err != nil {
		s.releaseAll(ctx, items)

		return order.Order{}, err
	}

	shipTo := in.ShippingAddress
	if shipTo == nil {
		shipTo = c.Address
	}

	now := time.Now().UTC()
	o := order.Order{
		ID:              uuid.NewString(),
		CustomerID:      c.ID,
		Status:          order.StatusPending,
		Items:           items,
		ShippingAddress: shipTo,
		TotalCents:      total,
		Currency:        cur,
		TrackingNumber:  s.shipping.GenerateTrackingNumber(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.persistNew(ctx, o); err != nil {
		s.releaseAll(ctx, items)

		return order.Order{}, err
	}

	slog.InfoContext(ctx, "Order created",
		"order_id", o.ID,
		"customer_id", o.CustomerID,
		"items", len(o.Items),
		"total_cents", o.TotalCents,
	)

	return o.Clone(), nil
}

func orderTotal(items []order.Item) (int64, error) {
	var total int64
	for _, it := range items {
		line, err := money.LineTotal(it.PriceCents, it.Quantity)
		if err == nil {
			total, err = money.Add(total, line)
		}
		if err != nil {
			return 0, errs.Validation("order total for product %s: %v", it.ProductID, err)
		}
	}

	return total, nil
}

func (s *OrderService) persistNew(ctx context.Context, o order.Order) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, work)

	if err := work.OrderRepository().Create(ctx, o); err != nil {
		return err
	}
	if err := s.enqueue(ctx, work, order.EventCreated, o, ""); err != nil {
		return err
	}

	return work.Commit(ctx)
}

// releaseAll returns reserved items to stock in reverse order. It runs even
// when ctx is already cancelled.
func (s *OrderService) releaseAll(ctx context.Context, items []order.Item) {
	ctx = context.WithoutCancel(ctx)
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if err := s.ledger.Release(ctx, it.ProductID, it.Quantity); err != nil {
			slog.ErrorContext(ctx, "Failed to release reserved inventory",
				"product_id", it.ProductID,
				"quantity", it.Quantity,
				"error", err,
			)
		}
	}
}

func (s *OrderService) rollback(ctx context.Context, work iuow.IUnitOfWork) {
	if err := work.Rollback(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "Failed to roll back transaction", "error", err)
	}
}

func (s *OrderService) enqueue(
	ctx context.Context,
	work iuow.IUnitOfWork,
	t order.EventType,
	o order.Order,
	previous order.Status,
) error {
	if s.events == nil {
		return nil
	}

	msg, err := outbox.NewJSONMessage(
		s.events.Exchange,
		string(t),
		o.ID,
		order.NewEvent(t, o, previous),
		s.events.MaxRetries,
		o.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return work.OutboxRepository().Enqueue(ctx, msg)
}

// decision inspects the current order and picks the target status. apply is
// false when the order is already where the caller wants it.
type decision func(current order.Order) (to order.Status, apply bool, err error)

func (s *OrderService) transition(ctx context.Context, id string, decide decision) (order.Order, error) {
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		current, err := s.orders.Get(ctx, id)
		if err != nil {
			return order.Order{}, err
		}

		to, apply, err := decide(current)
		if err != nil {
			return order.Order{}, err
		}
		if !apply {
			return current, nil
		}

		updated, released, swapped, err := s.applyTransition(ctx, current, to)
		if err != nil {
			return order.Order{}, err
		}
		if swapped {
			s.cache.Invalidate(append(released, cache.OrderKey(id), cache.TrackingKey(id))...)

			slog.InfoContext(ctx, "Order status changed",
				"order_id", id,
				"from", current.Status,
				"to", to,
			)

			return updated, nil
		}

		slog.WarnContext(ctx, "Order status changed concurrently, retrying",
			"order_id", id,
			"attempt", attempt,
		)
	}

	return order.Order{}, errs.ErrStaleOrderState
}

// applyTransition swaps the status and, on cancellation, restores stock in one
// unit of work. It returns the cache keys of the released products so they are
// dropped only after the commit.
func (s *OrderService) applyTransition(
	ctx context.Context,
	current order.Order,
	to order.Status,
) (order.Order, []cache.Key, bool, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, work)

	now := time.Now().UTC()
	swapped, err := work.OrderRepository().UpdateStatus(ctx, current.ID, current.Status, to, now)
	if err != nil {
		return order.Order{}, nil, false, err
	}
	if !swapped {
		return order.Order{}, nil, false, nil
	}

	updated := current.Clone()
	updated.Status = to
	updated.UpdatedAt = now

	var released []cache.Key
	event := order.EventStatusChanged
	if to == order.StatusCancelled {
		event = order.EventCancelled

		ledger := s.ledger.WithRepository(work.ProductRepository())
		for _, it := range current.Items {
			err := ledger.Release(ctx, it.ProductID, it.Quantity)
			if errors.Is(err, errs.ErrProductNotFound) {
				slog.WarnContext(ctx, "Product of cancelled order no longer exists, stock not restored",
					"order_id", current.ID,
					"product_id", it.ProductID,
				)

				continue
			}
			if err != nil {
				return order.Order{}, nil, false, err
			}
			released = append(released, cache.ProductKey(it.ProductID))
		}
	}

	if err := s.enqueue(ctx, work, event, updated, current.Status); err != nil {
		return order.Order{}, nil, false, err
	}
	if err := work.Commit(ctx); err != nil {
		return order.Order{}, nil, false, err
	}

	return updated, released, true, nil
}

// UpdateStatus moves an order to status. Moving a non-terminal order to its
// current status is a no-op. Terminal orders reject every change.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (order.Order, error) {
	ctx, span := startSpan(ctx, "OrderService.UpdateStatus", id)
	defer span.End()

	to, err := order.ParseStatus(status)
	if err != nil {
		return order.Order{}, errs.Validation("invalid status %q", status)
	}

	return s.transition(ctx, id, func(current order.Order) (order.Status, bool, error) {
		if current.Status.IsTerminal() {
			return "", false, errs.InvalidTransition(current.Status.String(), to.String())
		}

		return to, current.Status != to, nil
	})
}

// CancelOrder cancels an order and restores its stock. Cancelling a cancelled
// order returns it unchanged.
func (s *OrderService) CancelOrder(ctx context.Context, id string) (order.Order, error) {
	ctx, span := startSpan(ctx, "OrderService.CancelOrder", id)
	defer span.End()

	return s.transition(ctx, id, func(current order.Order) (order.Status, bool, error) {
		switch current.Status {
		case order.StatusCancelled:
			return "", false, nil
		case order.StatusDelivered:
			return "", false, errs.Immutable("delivered orders cannot be cancelled")
		default:
			return order.StatusCancelled, true, nil
		}
	})
}

// UpdateShippingAddress replaces the shipping address of a non-terminal order.
func (s *OrderService) UpdateShippingAddress(
	ctx context.Context,
	id string,
	addr address.Address,
) (order.Order, error) {
	ctx, span := startSpan(ctx, "OrderService.UpdateShippingAddress", id)
	defer span.End()

	if err := validation.Struct(addr); err != nil {
		return order.Order{}, err
	}

	current, err := s.orders.Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if current.Status.IsTerminal() {
		return order.Order{}, errs.Immutable(
			fmt.Sprintf("shipping address of a %s order cannot be changed", current.Status),
		)
	}

	if err := s.persistAddress(ctx, current, addr); err != nil {
		return order.Order{}, err
	}
	s.cache.Invalidate(cache.OrderKey(id), cache.TrackingKey(id))

	slog.InfoContext(ctx, "Order shipping address updated", "order_id", id)

	return s.orders.Get(ctx, id)
}

func (s *OrderService) persistAddress(ctx context.Context, current order.Order, addr address.Address) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, work)

	now := time.Now().UTC()
	changed, err := work.OrderRepository().UpdateShippingAddress(ctx, current.ID, addr, now)
	if err != nil {
		return err
	}
	if !changed {
		return errs.Immutable("order reached a final status before its address could be changed")
	}

	updated := current.Clone()
	updated.ShippingAddress = &addr
	updated.UpdatedAt = now
	if err := s.enqueue(ctx, work, order.EventShippingUpdated, updated, ""); err != nil {
		return err
	}

	return work.Commit(ctx)
}

// UpdateOrder applies a combined change: the shipping address first, then the status.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, upd order.Update) (order.Order, error) {
	ctx, span := startSpan(ctx, "OrderService.UpdateOrder", id)
	defer span.End()

	if upd.Status == nil && upd.ShippingAddress == nil {
		return order.Order{}, errs.Validation("status or shippingAddress is required")
	}
	if upd.Status != nil {
		if _, err := order.ParseStatus(*upd.Status); err != nil {
			return order.Order{}, errs.Validation("invalid status %q", *upd.Status)
		}
	}

	var (
		o   order.Order
		err error
	)
	if upd.ShippingAddress != nil {
		o, err = s.UpdateShippingAddress(ctx, id, *upd.ShippingAddress)
		if err != nil {
			return order.Order{}, err
		}
	}
	if upd.Status != nil {
		o, err = s.UpdateStatus(ctx, id, *upd.Status)
		if err != nil {
			return order.Order{}, err
		}
	}

	return o, nil
}

// GetOrder returns an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (order.Order, error) {
	ctx, span := startSpan(ctx, "OrderService.GetOrder", id)
	defer span.End()

	if o, ok := cache.Lookup[order.Order](s.cache, cache.OrderKey(id)); ok {
		return o.Clone(), nil
	}

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	s.cache.Set(cache.OrderKey(id), o.Clone(), s.ttl)

	return o, nil
}

// GetOrderDetails returns an order together with its customer and products.
func (s *OrderService) GetOrderDetails(ctx context.Context, id string) (order.Details, error) {
	ctx, span := startSpan(ctx, "OrderService.GetOrderDetails", id)
	defer span.End()

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return order.Details{}, err
	}

	details := order.Details{Order: o, Products: make(map[string]product.Product, len(o.Items))}

	c, err := s.customers.Get(ctx, o.CustomerID)
	switch {
	case err == nil:
		details.Customer = &c
	case !errors.Is(err, errs.ErrCustomerNotFound):
		return order.Details{}, err
	}

	products, err := s.products.GetMany(ctx, o.ProductIDs())
	if err != nil {
		return order.Details{}, err
	}
	for _, p := range products {
		details.Products[p.ID] = p
	}

	return details, nil
}

// ListOrders returns a page of orders matching filter, newest first.
func (s *OrderService) ListOrders(
	ctx context.Context,
	filter order.Filter,
	page pagination.Page,
) (pagination.Result[order.Order], error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "OrderService.ListOrders")
	defer span.End()

	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return pagination.Result[order.Order]{}, errs.Validation("startDate must not be after endDate")
	}

	page = page.Normalize()
	rows, total, err := s.orders.List(ctx, filter, page.Limit+1, page.Offset())
	if err != nil {
		return pagination.Result[order.Order]{}, err
	}

	return pagination.NewResult(rows, total, page), nil
}

// CustomerOrders returns a page of one customer's orders.
func (s *OrderService) CustomerOrders(
	ctx context.Context,
	customerID string,
	filter order.Filter,
	page pagination.Page,
) (pagination.Result[order.Order], error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "OrderService.CustomerOrders", trace.WithAttributes(
		attribute.String("customer.id", customerID),
	))
	defer span.End()

	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return pagination.Result[order.Order]{}, err
	}
	filter.CustomerID = customerID

	return s.ListOrders(ctx, filter, page)
}
