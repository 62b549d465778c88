// Package money converts between integer minor units and decimal amounts.
// All amounts inside the service are int64 cents; decimals only appear at the API boundary.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrSubCent        = errors.New("amount has more than two decimal places")
	ErrTooLarge       = errors.New("amount is too large")
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// FromDecimal converts d to minor units. Sub-cent precision is rejected, not rounded.
func FromDecimal(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}

	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, ErrSubCent
	}
	if cents.GreaterThan(maxCents) {
		return 0, ErrTooLarge
	}

	return cents.IntPart(), nil
}

// FromFloat converts a JSON/GraphQL number to minor units.
func FromFloat(f float64) (int64, error) {
	return FromDecimal(decimal.NewFromFloat(f))
}

// ToDecimal converts minor units to a two-place decimal.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToFloat converts minor units to a float for JSON and GraphQL output.
func ToFloat(cents int64) float64 {
	f, _ := ToDecimal(cents).Float64()

	return f
}

// LineTotal returns price times quantity, failing with ErrTooLarge on overflow.
func LineTotal(priceCents int64, quantity int) (int64, error) {
	if priceCents < 0 || quantity < 0 {
		return 0, ErrNegativeAmount
	}
	if quantity != 0 && priceCents > math.MaxInt64/int64(quantity) {
		return 0, ErrTooLarge
	}

	return priceCents * int64(quantity), nil
}

// Add returns a+b for non-negative amounts, failing with ErrTooLarge on overflow.
func Add(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if a > math.MaxInt64-b {
		return 0, ErrTooLarge
	}

	return a + b, nil
}
