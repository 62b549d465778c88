package product

import (
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
)

// Product represents a catalog product.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Currency    currency.Currency
	Category    string
	Inventory   int
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateProductInput is the input for adding a product to the catalog.
type CreateProductInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"required,max=5000"`
	PriceCents  int64  `validate:"min=0"`
	Currency    string `validate:"omitempty,oneof=USD EUR RUB"`
	Category    string `validate:"required,max=100"`
	Inventory   int    `validate:"min=0"`
	ImageURL    string `validate:"omitempty,max=2000"`
}

// UpdateProductInput is a partial update. Inventory is not part of it: stock only
// moves through the inventory ledger.
type UpdateProductInput struct {
	Name        *string `validate:"omitempty,min=1,max=200"`
	Description *string `validate:"omitempty,min=1,max=5000"`
	PriceCents  *int64  `validate:"omitempty,min=0"`
	Category    *string `validate:"omitempty,min=1,max=100"`
	ImageURL    *string `validate:"omitempty,max=2000"`
}

// Apply returns p with the non-nil fields of in applied.
func (in UpdateProductInput) Apply(p Product) Product {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}

	return p
}

// Filter narrows product listings.
type Filter struct {
	Category      string
	MinPriceCents *int64
	MaxPriceCents *int64
	Search        string
}

// Matches reports whether p satisfies the filter.
func (f Filter) Matches(p Product) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.MinPriceCents != nil && p.PriceCents < *f.MinPriceCents {
		return false
	}
	if f.MaxPriceCents != nil && p.PriceCents > *f.MaxPriceCents {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}

	return true
}
