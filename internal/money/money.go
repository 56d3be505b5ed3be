// Package money holds the cent-precision arithmetic shared by pricing and
// bill splitting. Amounts are shopspring decimals rounded to two places.
package money

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Places is the currency precision.
const Places = 2

var hundred = decimal.NewFromInt(100)

var (
	ErrNoWeights      = errors.New("at least one weight is required")
	ErrInvalidWeight  = errors.New("weights must be non-negative with a positive sum")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns pct percent of base, rounded to cents.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Cents converts a rounded amount to integer cents.
func Cents(d decimal.Decimal) int64 {
	return Round(d).Shift(Places).IntPart()
}

// FromCents converts integer cents back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -Places)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Allocate splits total into len(weights) parts proportional to weights.
// Parts are whole cents and always sum to the rounded total; leftover cents go
// to the parts with the largest fractional share, earlier parts winning ties.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, ErrNoWeights
	}
	if total.IsNegative() {
		return nil, ErrNegativeAmount
	}

	sumW := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, ErrInvalidWeight
		}
		sumW = sumW.Add(w)
	}
	if !sumW.IsPositive() {
		return nil, ErrInvalidWeight
	}

	totalCents := Cents(total)
	type share struct {
		index int
		cents int64
		frac  decimal.Decimal
	}
	shares := make([]share, len(weights))
	var allocated int64
	for i, w := range weights {
		exact := decimal.NewFromInt(totalCents).Mul(w).Div(sumW)
		floor := exact.Floor()
		shares[i] = share{index: i, cents: floor.IntPart(), frac: exact.Sub(floor)}
		allocated += shares[i].cents
	}

	leftover := totalCents - allocated
	order := make([]share, len(shares))
	copy(order, shares)
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].frac.GreaterThan(order[b].frac)
	})
	for i := int64(0); i < leftover; i++ {
		shares[order[i%int64(len(order))].index].cents++
	}

	parts := make([]decimal.Decimal, len(shares))
	for i, s := range shares {
		parts[i] = FromCents(s.cents)
	}
	return parts, nil
}

// Even splits total into n equal parts using Allocate.
func Even(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, ErrNoWeights
	}
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return Allocate(total, weights)
}
