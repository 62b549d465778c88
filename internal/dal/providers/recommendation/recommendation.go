// Package recommendation is a simulated recommendation engine API.
package recommendation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/spf13/viper"
)

const catalogSample = 100

var ErrUnavailable = errors.New("recommendation engine temporarily unavailable")

// catalog is where candidate products are drawn from.
type catalog interface {
	List(ctx context.Context, filter product.Filter, limit, offset int) ([]product.Product, int, error)
}

// MockProvider picks 3 to 5 random catalog products and scores them between 0.5 and 1.0.
type MockProvider struct {
	catalog     catalog
	mu          sync.Mutex
	rnd         *rand.Rand
	latency     time.Duration
	failureRate float64
}

type option func(*MockProvider)

// NewMockProvider creates a provider configured from providers.recommendation.* unless overridden.
func NewMockProvider(products catalog, opts ...option) *MockProvider {
	p := &MockProvider{
		catalog:     products,
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1)),
		latency:     viper.GetDuration("providers.recommendation.latency"),
		failureRate: viper.GetFloat64("providers.recommendation.failure_rate"),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithLatency sets the simulated response time.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLatency(d time.Duration) option {
	return func(p *MockProvider) {
		p.latency = d
	}
}

// WithFailureRate sets the probability in [0,1] that a call fails.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithFailureRate(rate float64) option {
	return func(p *MockProvider) {
		p.failureRate = rate
	}
}

// WithSeed makes the picks reproducible.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSeed(seed uint64) option {
	return func(p *MockProvider) {
		p.rnd = rand.New(rand.NewPCG(seed, seed))
	}
}

func reasons(category string) []string {
	return []string{
		"Customers who purchased similar items also bought this",
		"Based on your browsing history",
		"Popular in your area",
		"Top seller in " + category,
		"Frequently bought together with your previous purchases",
		"New arrivals you might like",
	}
}

// GetRecommendations returns candidates not in excluded, sorted by descending score.
func (p *MockProvider) GetRecommendations(
	ctx context.Context,
	customerID string,
	excluded []string,
) ([]recommendation.Candidate, error) {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	failed := p.failureRate > 0 && p.rnd.Float64() < p.failureRate
	p.mu.Unlock()
	if failed {
		return nil, ErrUnavailable
	}

	products, _, err := p.catalog.List(ctx, product.Filter{}, catalogSample, 0)
	if err != nil {
		return nil, err
	}

	available := make([]product.Product, 0, len(products))
	for _, prod := range products {
		if !slices.Contains(excluded, prod.ID) {
			available = append(available, prod)
		}
	}

	p.mu.Lock()
	p.rnd.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	n := min(p.rnd.IntN(3)+3, len(available))

	candidates := make([]recommendation.Candidate, 0, n)
	for _, prod := range available[:n] {
		rs := reasons(prod.Category)
		candidates = append(candidates, recommendation.Candidate{
			ProductID: prod.ID,
			Score:     math.Round((p.rnd.Float64()*0.5+0.5)*100) / 100,
			Reason:    rs[p.rnd.IntN(len(rs))],
		})
	}
	p.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates, nil
}
