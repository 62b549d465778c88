package recommendation

import "github.com/corray333/backend-labs/shop/internal/service/models/product"

const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// Candidate is a raw pick returned by the recommendation provider.
type Candidate struct {
	ProductID string
	Score     float64
	Reason    string
}

// Recommendation is a candidate resolved to a catalog product.
type Recommendation struct {
	Product product.Product
	Score   float64
	Reason  string
}

// NormalizeLimit applies the default and the upper bound.
func NormalizeLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}

	return limit
}
