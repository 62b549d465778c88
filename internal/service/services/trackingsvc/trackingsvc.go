package trackingsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTTL     = 15 * time.Minute
	defaultTimeout = 5 * time.Second
)

type trackingProvider interface {
	GetTrackingInfo(ctx context.Context, trackingNumber string) (tracking.Info, error)
}

// TrackingService resolves shipment tracking for orders.
type TrackingService struct {
	orders   iorderrepo.IOrderRepository
	provider trackingProvider
	cache    *cache.Cache
	ttl      time.Duration
	timeout  time.Duration
}

// option is a function that configures the TrackingService.
type option func(*TrackingService)

// MustNewTrackingService creates a new TrackingService. The provider timeout
// defaults to providers.shipping.timeout.
func MustNewTrackingService(opts ...option) *TrackingService {
	s := &TrackingService{
		ttl:     defaultTTL,
		timeout: viper.GetDuration("providers.shipping.timeout"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.orders == nil {
		panic("trackingsvc: order repository is required")
	}
	if s.provider == nil {
		panic("trackingsvc: shipping provider is required")
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	return s
}

// WithOrderRepository sets the order repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *TrackingService) {
		s.orders = repo
	}
}

// WithShippingProvider sets the carrier integration.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithShippingProvider(p trackingProvider) option {
	return func(s *TrackingService) {
		s.provider = p
	}
}

// WithCache sets the cache and how long tracking lookups stay in it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(c *cache.Cache, ttl time.Duration) option {
	return func(s *TrackingService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTimeout bounds each provider call.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(d time.Duration) option {
	return func(s *TrackingService) {
		s.timeout = d
	}
}

// GetTracking returns tracking for an order, or nil when the order has not
// shipped or carries no tracking number.
func (s *TrackingService) GetTracking(ctx context.Context, orderID string) (*tracking.Tracking, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "TrackingService.GetTracking", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	key := cache.TrackingKey(orderID)
	if t, ok := cache.Lookup[tracking.Tracking](s.cache, key); ok {
		return &t, nil
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.HasShipped() || o.TrackingNumber == "" {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.provider.GetTrackingInfo(callCtx, o.TrackingNumber)
	if err != nil {
		slog.WarnContext(ctx, "Shipping provider call failed",
			"order_id", orderID,
			"tracking_number", o.TrackingNumber,
			"error", err,
		)

		return nil, errs.Unavailable("shipping provider", err)
	}

	t := tracking.Tracking{
		OrderID:     o.ID,
		OrderStatus: o.Status,
		OrderDate:   o.CreatedAt,
		Info:        info,
	}
	s.cache.Set(key, t, s.ttl)

	return &t, nil
}
