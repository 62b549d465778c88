package trackingsvc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/providers/shipping"
	"github.com/corray333/backend-labs/shop/internal/dal/repositories/memory"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) GetTrackingInfo(_ context.Context, number string) (tracking.Info, error) {
	p.calls.Add(1)
	if p.err != nil {
		return tracking.Info{}, p.err
	}

	return tracking.Info{TrackingNumber: number, Carrier: "MockEx", Status: "in_transit"}, nil
}

func seedOrder(t *testing.T, store *memory.Store, id string, status order.Status, number string) {
	t.Helper()
	ctx := context.Background()

	customers := memory.NewCustomerRepository(store)
	if _, err := customers.Get(ctx, "c1"); err != nil {
		require.NoError(t, customers.Create(ctx, customer.Customer{ID: "c1", Name: "Ada", Email: "ada@example.com"}))
	}

	require.NoError(t, memory.NewOrderRepository(store).Create(ctx, order.Order{
		ID:             id,
		CustomerID:     "c1",
		Status:         status,
		TrackingNumber: number,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}))
}

func newService(store *memory.Store, p trackingProvider) *TrackingService {
	return MustNewTrackingService(
		WithOrderRepository(memory.NewOrderRepository(store)),
		WithShippingProvider(p),
		WithCache(cache.New(time.Hour), time.Hour),
		WithTimeout(time.Second),
	)
}

func TestGetTrackingForShippedOrder(t *testing.T) {
	store := memory.NewStore()
	seedOrder(t, store, "o1", order.StatusShipped, "ABC123DEF456")
	p := &countingProvider{}
	svc := newService(store, p)

	got, err := svc.GetTracking(context.Background(), "o1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, order.StatusShipped, got.OrderStatus)
	assert.Equal(t, "ABC123DEF456", got.Info.TrackingNumber)

	_, err = svc.GetTracking(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGetTrackingNotShipped(t *testing.T) {
	store := memory.NewStore()
	seedOrder(t, store, "pending", order.StatusPending, "ABC123DEF456")
	seedOrder(t, store, "untracked", order.StatusDelivered, "")
	p := &countingProvider{}
	svc := newService(store, p)

	for _, id := range []string{"pending", "untracked"} {
		got, err := svc.GetTracking(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, got, id)
	}
	assert.Zero(t, p.calls.Load())

	_, err := svc.GetTracking(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrOrderNotFound)
}

func TestGetTrackingProviderFailure(t *testing.T) {
	store := memory.NewStore()
	seedOrder(t, store, "o1", order.StatusShipped, "ABC123DEF456")

	svc := newService(store, &countingProvider{err: errors.New("carrier down")})
	_, err := svc.GetTracking(context.Background(), "o1")
	assert.Equal(t, errs.KindServiceUnavailable, errs.KindOf(err))

	slow := MustNewTrackingService(
		WithOrderRepository(memory.NewOrderRepository(store)),
		WithShippingProvider(shipping.NewMockProvider(shipping.WithLatency(time.Second))),
		WithTimeout(10*time.Millisecond),
	)
	_, err = slow.GetTracking(context.Background(), "o1")
	assert.Equal(t, errs.KindServiceUnavailable, errs.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
