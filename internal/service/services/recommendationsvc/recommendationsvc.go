package recommendationsvc

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTTL     = time.Hour
	defaultTimeout = 5 * time.Second
)

type recommender interface {
	GetRecommendations(
		ctx context.Context,
		customerID string,
		excluded []string,
	) ([]recommendation.Candidate, error)
}

// RecommendationService resolves provider picks into catalog products.
type RecommendationService struct {
	customers icustomerrepo.ICustomerRepository
	orders    iorderrepo.IOrderRepository
	products  iproductrepo.IProductRepository
	provider  recommender
	cache     *cache.Cache
	ttl       time.Duration
	timeout   time.Duration
}

// option is a function that configures the RecommendationService.
type option func(*RecommendationService)

// MustNewRecommendationService creates a new RecommendationService. The
// provider timeout defaults to providers.recommendation.timeout.
func MustNewRecommendationService(opts ...option) *RecommendationService {
	s := &RecommendationService{
		ttl:     defaultTTL,
		timeout: viper.GetDuration("providers.recommendation.timeout"),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.customers == nil:
		panic("recommendationsvc: customer repository is required")
	case s.orders == nil:
		panic("recommendationsvc: order repository is required")
	case s.products == nil:
		panic("recommendationsvc: product repository is required")
	case s.provider == nil:
		panic("recommendationsvc: recommendation provider is required")
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	return s
}

// WithCustomerRepository sets the customer repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCustomerRepository(repo icustomerrepo.ICustomerRepository) option {
	return func(s *RecommendationService) {
		s.customers = repo
	}
}

// WithOrderRepository sets the repository purchase history is read from.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *RecommendationService) {
		s.orders = repo
	}
}

// WithProductRepository sets the repository candidates are resolved through.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *RecommendationService) {
		s.products = repo
	}
}

// WithProvider sets the recommendation engine.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProvider(p recommender) option {
	return func(s *RecommendationService) {
		s.provider = p
	}
}

// WithCache sets the cache and how long a customer's picks stay in it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(c *cache.Cache, ttl time.Duration) option {
	return func(s *RecommendationService) {
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
	return func(s *RecommendationService) {
		s.timeout = d
	}
}

// GetCustomerRecommendations returns up to limit products for a customer,
// excluding what they already bought. Picks are cached per customer and are
// not refreshed by new orders until they expire.
func (s *RecommendationService) GetCustomerRecommendations(
	ctx context.Context,
	customerID string,
	limit int,
) ([]recommendation.Recommendation, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "RecommendationService.GetCustomerRecommendations",
		trace.WithAttributes(attribute.String("customer.id", customerID)),
	)
	defer span.End()

	limit = recommendation.NormalizeLimit(limit)
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}

	key := cache.RecommendationsKey(customerID)
	candidates, ok := cache.Lookup[[]recommendation.Candidate](s.cache, key)
	if !ok {
		purchased, err := s.orders.PurchasedProductIDs(ctx, customerID)
		if err != nil {
			return nil, err
		}

		candidates, err = s.fetch(ctx, customerID, purchased)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, candidates, s.ttl)
	}

	return s.resolve(ctx, candidates, "", limit)
}

// GetProductRecommendations returns anonymous picks, optionally limited to a category.
func (s *RecommendationService) GetProductRecommendations(
	ctx context.Context,
	category string,
	limit int,
) ([]recommendation.Recommendation, error) {
	ctx, span := otel.Tracer("shop-svc").Start(ctx, "RecommendationService.GetProductRecommendations",
		trace.WithAttributes(attribute.String("product.category", category)),
	)
	defer span.End()

	candidates, err := s.fetch(ctx, "", nil)
	if err != nil {
		return nil, err
	}

	return s.resolve(ctx, candidates, category, recommendation.NormalizeLimit(limit))
}

func (s *RecommendationService) fetch(
	ctx context.Context,
	customerID string,
	excluded []string,
) ([]recommendation.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	candidates, err := s.provider.GetRecommendations(callCtx, customerID, excluded)
	if err != nil {
		slog.WarnContext(ctx, "Recommendation provider call failed",
			"customer_id", customerID,
			"error", err,
		)

		return nil, errs.Unavailable("recommendation engine", err)
	}

	sorted := append([]recommendation.Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	return sorted, nil
}

func (s *RecommendationService) resolve(
	ctx context.Context,
	candidates []recommendation.Candidate,
	category string,
	limit int,
) ([]recommendation.Recommendation, error) {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ProductID)
	}

	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	out := make([]recommendation.Recommendation, 0, min(limit, len(candidates)))
	for _, c := range candidates {
		i, ok := byID[c.ProductID]
		if !ok {
			continue
		}
		if category != "" && products[i].Category != category {
			continue
		}

		out = append(out, recommendation.Recommendation{
			Product: products[i],
			Score:   c.Score,
			Reason:  c.Reason,
		})
		if len(out) == limit {
			break
		}
	}

	return out, nil
}
