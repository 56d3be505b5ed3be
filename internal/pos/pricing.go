package pos

import (
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/money"
)

// Tip is either a percentage of the subtotal or a fixed amount
type Tip struct {
	Type  models.TipType  `json:"tip_type"`
	Value decimal.Decimal `json:"value"`
}

// AmountFor returns the tip in cents for the given subtotal
func (t Tip) AmountFor(subtotal decimal.Decimal) decimal.Decimal {
	if !t.Value.IsPositive() {
		return money.Zero
	}
	if t.Type == models.TipPercent {
		return money.Percent(subtotal, t.Value)
	}
	return money.Round(t.Value)
}

// PricingSnapshot is derived from a cart on demand and never stored
type PricingSnapshot struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	ServiceCharge  decimal.Decimal `json:"service_charge"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Totals converts the snapshot into the persisted order totals
func (p PricingSnapshot) Totals() models.OrderTotals {
	return models.OrderTotals{
		Subtotal:       p.Subtotal,
		Tax:            p.Tax,
		ServiceCharge:  p.ServiceCharge,
		DiscountAmount: p.DiscountAmount,
		TipAmount:      p.TipAmount,
		Total:          p.Total,
	}
}

// Price computes the snapshot. Every component is rounded to cents first and
// the total is the exact sum of the rounded components. A nil discount means
// no discount is applied.
func Price(cart Cart, discount *DiscountState, tip Tip, rates Rates) PricingSnapshot {
	if cart.IsEmpty() {
		return PricingSnapshot{
			Subtotal:       money.Zero,
			Tax:            money.Zero,
			ServiceCharge:  money.Zero,
			DiscountAmount: money.Zero,
			TipAmount:      money.Zero,
			Total:          money.Zero,
		}
	}

	subtotal := money.Round(cart.Subtotal())
	snap := PricingSnapshot{
		Subtotal:       subtotal,
		Tax:            money.Round(subtotal.Mul(rates.Tax)),
		ServiceCharge:  money.Round(subtotal.Mul(rates.ServiceCharge)),
		DiscountAmount: money.Zero,
		TipAmount:      tip.AmountFor(subtotal),
	}
	if discount != nil {
		snap.DiscountAmount = discount.AmountFor(subtotal)
	}
	snap.Total = snap.Subtotal.Add(snap.Tax).Add(snap.ServiceCharge).Sub(snap.DiscountAmount).Add(snap.TipAmount)
	return snap
}
