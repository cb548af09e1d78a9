package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents for USD).
type Money int64

var ErrInvalidAmount = errors.New("invalid monetary amount")

var hundred = decimal.NewFromInt(100)

// MoneyFromDollars converts a float dollar amount into minor units.
// Amounts with sub-cent precision are rejected rather than rounded.
func MoneyFromDollars(dollars float64) (Money, error) {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, dollars)
	}
	if dollars < 0 {
		return 0, fmt.Errorf("%w: negative amount %v", ErrInvalidAmount, dollars)
	}

	cents := decimal.NewFromFloat(dollars).Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %v has more than two decimal places", ErrInvalidAmount, dollars)
	}
	if !cents.LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidAmount, dollars)
	}
	return Money(cents.IntPart()), nil
}

// Dollars renders the amount as a fixed two-decimal string, e.g. "500.00".
func (m Money) Dollars() string {
	return decimal.NewFromInt(int64(m)).Div(hundred).StringFixed(2)
}

// Format renders the amount with a dollar sign, e.g. "$500.00".
func (m Money) Format() string {
	return "$" + m.Dollars()
}

func (m Money) Int64() int64 {
	return int64(m)
}
