package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/shop/internal/dal/repositories/memory"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/services/inventorysvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTracking struct{}

func (fixedTracking) GenerateTrackingNumber() string { return "TRACK0000001" }

type env struct {
	svc      *OrderService
	store    *memory.Store
	products *memory.ProductRepository
	cache    *cache.Cache
}

func newEnv(t *testing.T, opts ...option) *env {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	c := cache.New(time.Hour)

	err := memory.NewCustomerRepository(store).Create(context.Background(), customer.Customer{
		ID:      "c1",
		Name:    "Ada",
		Email:   "ada@example.com",
		Address: &address.Address{Street: "1 Main St", City: "Springfield", Country: "US"},
	})
	require.NoError(t, err)

	base := []option{
		WithCustomerRepository(memory.NewCustomerRepository(store)),
		WithOrderRepository(memory.NewOrderRepository(store)),
		WithProductRepository(products),
		WithLedger(inventorysvc.MustNewLedger(
			inventorysvc.WithProductRepository(products),
			inventorysvc.WithCache(c),
		)),
		WithUnitOfWork(func() iuow.IUnitOfWork { return memory.NewUnitOfWork(store) }),
		WithShippingProvider(fixedTracking{}),
		WithCache(c, time.Hour),
	}

	return &env{
		svc:      MustNewOrderService(append(base, opts...)...),
		store:    store,
		products: products,
		cache:    c,
	}
}

func (e *env) addProduct(t *testing.T, id string, cents int64, stock int) {
	t.Helper()

	err := e.products.Create(context.Background(), product.Product{
		ID:         id,
		Name:       "Product " + id,
		PriceCents: cents,
		Currency:   currency.CurrencyUSD,
		Category:   "general",
		Inventory:  stock,
	})
	require.NoError(t, err)
}

func (e *env) stock(t *testing.T, id string) int {
	t.Helper()

	p, err := e.products.Get(context.Background(), id)
	require.NoError(t, err)

	return p.Inventory
}

func (e *env) place(t *testing.T, items ...order.ItemInput) order.Order {
	t.Helper()

	o, err := e.svc.CreateOrder(context.Background(), order.CreateOrderInput{CustomerID: "c1", Items: items})
	require.NoError(t, err)

	return o
}

func item(productID string, qty int) order.ItemInput {
	return order.ItemInput{ProductID: productID, Quantity: qty}
}

func TestCreateAndCancelRestoresStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 999, 5)

	o := e.place(t, item("p1", 3))

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, int64(2997), o.TotalCents)
	assert.Equal(t, currency.CurrencyUSD, o.Currency)
	assert.Equal(t, "TRACK0000001", o.TrackingNumber)
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	assert.Equal(t, 2, e.stock(t, "p1"))

	cancelled, err := e.svc.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, e.stock(t, "p1"))

	again, err := e.svc.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, again.Status)
	assert.Equal(t, 5, e.stock(t, "p1"))
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "a", 100, 5)
	e.addProduct(t, "b", 100, 1)

	_, err := e.svc.CreateOrder(ctx, order.CreateOrderInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{item("a", 2), item("b", 3)},
	})
	require.ErrorIs(t, err, errs.ErrInsufficientInventory)

	assert.Equal(t, 5, e.stock(t, "a"))
	assert.Equal(t, 1, e.stock(t, "b"))

	res, err := e.svc.ListOrders(ctx, order.Filter{}, pagination.Page{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestCreateOrderRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "a", 100, 5)
	require.NoError(t, e.products.Create(ctx, product.Product{
		ID: "eur", Name: "Euro thing", PriceCents: 100, Currency: currency.CurrencyEUR, Category: "general", Inventory: 5,
	}))

	tests := []struct {
		name  string
		input order.CreateOrderInput
		check func(t *testing.T, err error)
	}{
		{
			name:  "no items",
			input: order.CreateOrderInput{CustomerID: "c1"},
			check: func(t *testing.T, err error) { assert.Equal(t, errs.KindValidation, errs.KindOf(err)) },
		},
		{
			name:  "zero quantity",
			input: order.CreateOrderInput{CustomerID: "c1", Items: []order.ItemInput{item("a", 0)}},
			check: func(t *testing.T, err error) { assert.Equal(t, errs.KindValidation, errs.KindOf(err)) },
		},
		{
			name:  "unknown customer",
			input: order.CreateOrderInput{CustomerID: "nobody", Items: []order.ItemInput{item("a", 1)}},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, errs.ErrCustomerNotFound) },
		},
		{
			name:  "unknown product after a reserved one",
			input: order.CreateOrderInput{CustomerID: "c1", Items: []order.ItemInput{item("a", 2), item("ghost", 1)}},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, errs.ErrProductNotFound) },
		},
		{
			name:  "mixed currencies",
			input: order.CreateOrderInput{CustomerID: "c1", Items: []order.ItemInput{item("a", 1), item("eur", 1)}},
			check: func(t *testing.T, err error) { assert.Equal(t, errs.KindValidation, errs.KindOf(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CreateOrder(ctx, tt.input)
			require.Error(t, err)
			tt.check(t, err)

			assert.Equal(t, 5, e.stock(t, "a"))
			assert.Equal(t, 5, e.stock(t, "eur"))
		})
	}
}

func TestCreateOrderRejectsOverflowingTotal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "big", math.MaxInt64/2, 10)
	e.addProduct(t, "small", 100, 10)

	_, err := e.svc.CreateOrder(ctx, order.CreateOrderInput{CustomerID: "c1", Items: []order.ItemInput{item("big", 3)}})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = e.svc.CreateOrder(ctx, order.CreateOrderInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{item("big", 2), item("small", 1)},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	assert.Equal(t, 10, e.stock(t, "big"))
	assert.Equal(t, 10, e.stock(t, "small"))
}

func TestOrderPriceIsFrozen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 1000, 5)

	o := e.place(t, item("p1", 2))

	p, err := e.products.Get(ctx, "p1")
	require.NoError(t, err)
	p.PriceCents = 2000
	_, err = e.products.Update(ctx, p)
	require.NoError(t, err)

	got, err := e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.TotalCents)
	assert.Equal(t, int64(1000), got.Items[0].PriceCents)
}

func TestStatusTransitions(t *testing.T) {
	for _, from := range order.Statuses {
		for _, to := range order.Statuses {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				e := newEnv(t)
				ctx := context.Background()
				e.addProduct(t, "p1", 100, 5)

				o := e.place(t, item("p1", 2))
				if from != order.StatusPending {
					_, err := e.svc.UpdateStatus(ctx, o.ID, from.String())
					require.NoError(t, err)
				}
				before := e.stock(t, "p1")

				got, err := e.svc.UpdateStatus(ctx, o.ID, to.String())
				if from.IsTerminal() {
					require.ErrorIs(t, err, errs.ErrInvalidTransition)
					assert.Equal(t, before, e.stock(t, "p1"))

					return
				}

				require.NoError(t, err)
				assert.Equal(t, to, got.Status)
				if to == order.StatusCancelled {
					assert.Equal(t, 5, e.stock(t, "p1"))
				} else {
					assert.Equal(t, 3, e.stock(t, "p1"))
				}
			})
		}
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	e := newEnv(t)
	e.addProduct(t, "p1", 100, 5)
	o := e.place(t, item("p1", 1))

	_, err := e.svc.UpdateStatus(context.Background(), o.ID, "returned")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = e.svc.UpdateStatus(context.Background(), "missing", "shipped")
	require.ErrorIs(t, err, errs.ErrOrderNotFound)
}

func TestCancelDeliveredOrderIsImmutable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 100, 5)
	o := e.place(t, item("p1", 1))

	_, err := e.svc.UpdateStatus(ctx, o.ID, "delivered")
	require.NoError(t, err)

	_, err = e.svc.CancelOrder(ctx, o.ID)
	require.ErrorIs(t, err, errs.ErrImmutableOrderState)
	assert.Equal(t, 4, e.stock(t, "p1"))
}

func TestUpdateShippingAddress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 100, 10)
	addr := address.Address{Street: "9 Elm St", City: "Shelbyville", Country: "US"}

	open := e.place(t, item("p1", 1))
	got, err := e.svc.UpdateShippingAddress(ctx, open.ID, addr)
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", got.ShippingAddress.City)

	for _, final := range []string{"delivered", "cancelled"} {
		o := e.place(t, item("p1", 1))
		_, err := e.svc.UpdateStatus(ctx, o.ID, final)
		require.NoError(t, err)

		_, err = e.svc.UpdateShippingAddress(ctx, o.ID, addr)
		require.ErrorIs(t, err, errs.ErrImmutableOrderState, final)
	}

	_, err = e.svc.UpdateShippingAddress(ctx, "missing", addr)
	require.ErrorIs(t, err, errs.ErrOrderNotFound)
}

func TestUpdateOrderValidatesBeforeApplying(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 100, 5)
	o := e.place(t, item("p1", 1))

	bad := "returned"
	addr := address.Address{City: "Ogdenville"}
	_, err := e.svc.UpdateOrder(ctx, o.ID, order.Update{Status: &bad, ShippingAddress: &addr})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	got, err := e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", got.ShippingAddress.City)

	shipped := "shipped"
	got, err = e.svc.UpdateOrder(ctx, o.ID, order.Update{Status: &shipped, ShippingAddress: &addr})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
	assert.Equal(t, "Ogdenville", got.ShippingAddress.City)

	_, err = e.svc.UpdateOrder(ctx, o.ID, order.Update{})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	e := newEnv(t)
	e.addProduct(t, "p1", 100, 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := e.svc.CreateOrder(context.Background(), order.CreateOrderInput{
				CustomerID: "c1",
				Items:      []order.ItemInput{item("p1", 1)},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()

				return
			}
			assert.ErrorIs(t, err, errs.ErrInsufficientInventory)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, e.stock(t, "p1"))
}

func TestConcurrentCancelsRestoreOnce(t *testing.T) {
	e := newEnv(t)
	e.addProduct(t, "p1", 100, 5)
	o := e.place(t, item("p1", 3))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			got, err := e.svc.CancelOrder(context.Background(), o.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, order.StatusCancelled, got.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, e.stock(t, "p1"))
}

func TestInventoryIsConserved(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	initial := map[string]int{"a": 20, "b": 15, "c": 8}
	for id, stock := range initial {
		e.addProduct(t, id, 100, stock)
	}

	rng := rand.New(rand.NewPCG(42, 7))
	ids := []string{"a", "b", "c"}
	var open []order.Order

	for range 200 {
		if len(open) > 0 && rng.IntN(3) == 0 {
			i := rng.IntN(len(open))
			_, err := e.svc.CancelOrder(ctx, open[i].ID)
			require.NoError(t, err)
			open = append(open[:i], open[i+1:]...)

			continue
		}

		o, err := e.svc.CreateOrder(ctx, order.CreateOrderInput{
			CustomerID: "c1",
			Items: []order.ItemInput{
				item(ids[rng.IntN(len(ids))], 1+rng.IntN(3)),
				item(ids[rng.IntN(len(ids))], 1+rng.IntN(2)),
			},
		})
		if err != nil {
			require.ErrorIs(t, err, errs.ErrInsufficientInventory)

			continue
		}
		open = append(open, o)
	}

	reserved := map[string]int{}
	for _, o := range open {
		for _, it := range o.Items {
			reserved[it.ProductID] += it.Quantity
		}
	}
	for id, stock := range initial {
		got := e.stock(t, id)
		assert.GreaterOrEqual(t, got, 0)
		assert.Equal(t, stock-reserved[id], got, id)
	}
}

type failingOrders struct {
	iorderrepo.IOrderRepository
}

func (failingOrders) Create(context.Context, order.Order) error {
	return errors.New("disk full")
}

type failingUOW struct {
	*memory.UnitOfWork
}

func (u failingUOW) OrderRepository() iorderrepo.IOrderRepository {
	return failingOrders{u.UnitOfWork.OrderRepository()}
}

type commitHookUOW struct {
	*memory.UnitOfWork
	beforeCommit func()
}

func (u commitHookUOW) Commit(ctx context.Context) error {
	u.beforeCommit()

	return u.UnitOfWork.Commit(ctx)
}

func TestCancelInvalidatesProductsAfterCommit(t *testing.T) {
	var (
		e              *env
		cachedAtCommit []bool
	)
	e = newEnv(t, WithUnitOfWork(func() iuow.IUnitOfWork {
		return commitHookUOW{
			UnitOfWork: memory.NewUnitOfWork(e.store),
			beforeCommit: func() {
				_, ok := e.cache.Get(cache.ProductKey("p1"))
				cachedAtCommit = append(cachedAtCommit, ok)
			},
		}
	}))
	ctx := context.Background()
	e.addProduct(t, "p1", 999, 5)
	o := e.place(t, item("p1", 3))

	cachedAtCommit = nil
	e.cache.Set(cache.ProductKey("p1"), product.Product{ID: "p1", Inventory: 2}, 0)

	_, err := e.svc.CancelOrder(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, cachedAtCommit)
	_, ok := e.cache.Get(cache.ProductKey("p1"))
	assert.False(t, ok)
	assert.Equal(t, 5, e.stock(t, "p1"))
}

func TestPersistFailureReleasesReservations(t *testing.T) {
	e := newEnv(t)
	e.svc.newUOW = func() iuow.IUnitOfWork { return failingUOW{memory.NewUnitOfWork(e.store)} }
	e.addProduct(t, "a", 100, 5)
	e.addProduct(t, "b", 100, 5)

	_, err := e.svc.CreateOrder(context.Background(), order.CreateOrderInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{item("a", 2), item("b", 4)},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindInternal, errs.KindOf(err))

	assert.Equal(t, 5, e.stock(t, "a"))
	assert.Equal(t, 5, e.stock(t, "b"))
}

func TestEventsAreWrittenToOutbox(t *testing.T) {
	e := newEnv(t, WithEvents(EventsConfig{Exchange: "shop.events", MaxRetries: 3}))
	ctx := context.Background()
	e.addProduct(t, "p1", 100, 5)

	o := e.place(t, item("p1", 1))
	_, err := e.svc.UpdateStatus(ctx, o.ID, "processing")
	require.NoError(t, err)
	_, err = e.svc.CancelOrder(ctx, o.ID)
	require.NoError(t, err)

	msgs, err := memory.NewOutboxRepository(e.store).Due(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		assert.Equal(t, "shop.events", m.ExchangeName)
		assert.Equal(t, o.ID, m.AggregateID)
		types = append(types, m.EventType)
	}
	assert.ElementsMatch(t, []string{"order.created", "order.status_changed", "order.cancelled"}, types)

	for _, m := range msgs {
		if m.EventType != "order.cancelled" {
			continue
		}
		var ev order.Event
		require.NoError(t, json.Unmarshal(m.Payload, &ev))
		assert.Equal(t, order.StatusCancelled, ev.Status)
		assert.Equal(t, order.StatusProcessing, ev.PreviousStatus)
	}
}

func TestGetOrderSeesUpdatesThroughCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 100, 5)
	o := e.place(t, item("p1", 1))

	_, err := e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, o.ID, "shipped")
	require.NoError(t, err)

	got, err := e.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
}

func TestGetOrderDetails(t *testing.T) {
	e := newEnv(t)
	e.addProduct(t, "p1", 100, 5)
	e.addProduct(t, "p2", 250, 5)
	o := e.place(t, item("p1", 1), item("p2", 2))

	d, err := e.svc.GetOrderDetails(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Customer)
	assert.Equal(t, "Ada", d.Customer.Name)
	assert.Len(t, d.Products, 2)
	assert.Equal(t, int64(600), d.Order.TotalCents)
}

func TestListAndCustomerOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addProduct(t, "p1", 100, 50)
	for range 5 {
		e.place(t, item("p1", 1))
	}

	first, err := e.svc.ListOrders(ctx, order.Filter{}, pagination.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, 5, first.Total)
	assert.True(t, first.HasMore)

	last, err := e.svc.CustomerOrders(ctx, "c1", order.Filter{}, pagination.Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasMore)

	pending, err := e.svc.ListOrders(ctx, order.Filter{Status: order.StatusShipped}, pagination.Page{})
	require.NoError(t, err)
	assert.Zero(t, pending.Total)

	_, err = e.svc.CustomerOrders(ctx, "nobody", order.Filter{}, pagination.Page{})
	require.ErrorIs(t, err, errs.ErrCustomerNotFound)

	later := time.Now().Add(time.Hour)
	earlier := time.Now().Add(-time.Hour)
	_, err = e.svc.ListOrders(ctx, order.Filter{StartDate: &later, EndDate: &earlier}, pagination.Page{})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}
