package pos

import (
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/money"
)

// DiscountState is the discount currently applied to a checkout
type DiscountState struct {
	Name       string                  `json:"name"`
	Kind       models.DiscountKind     `json:"kind"`
	Value      decimal.Decimal         `json:"value"`
	MaxAmount  decimal.NullDecimal     `json:"max_amount"`
	Amount     decimal.Decimal         `json:"amount"`
	DiscountID *int64                  `json:"discount_id,omitempty"`
	ApprovedBy *models.ManagerApproval `json:"approved_by,omitempty"`
}

// AmountFor evaluates the discount against the current subtotal. Percentage
// discounts follow the subtotal; fixed and manual amounts stay as entered.
// The result is clamped to [0, subtotal].
func (d DiscountState) AmountFor(subtotal decimal.Decimal) decimal.Decimal {
	amount := d.Amount
	if d.Kind == models.DiscountPercentage {
		amount, _ = discountAmount(d.Kind, d.Value, d.MaxAmount, subtotal)
	}
	return money.Clamp(amount, money.Zero, money.Round(subtotal))
}

// AmountFor computes what a catalog discount takes off the given subtotal,
// before clamping
func AmountFor(d models.CatalogDiscount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	return discountAmount(d.Kind, d.Value, d.MaxDiscountAmount, subtotal)
}

func discountAmount(kind models.DiscountKind, value decimal.Decimal, max decimal.NullDecimal, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return money.Zero, models.ValidationError{Field: "discount.value", Message: "discount value must not be negative"}
	}
	switch kind {
	case models.DiscountPercentage:
		amount := money.Percent(subtotal, value)
		if max.Valid && amount.GreaterThan(max.Decimal) {
			amount = money.Round(max.Decimal)
		}
		return amount, nil
	case models.DiscountFixed, models.DiscountManual:
		return money.Round(value), nil
	default:
		return money.Zero, models.ValidationError{Field: "discount.kind", Message: fmt.Sprintf("unknown discount kind %q", kind)}
	}
}
