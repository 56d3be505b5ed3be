// Package checkout drives a terminal's checkout session against the POS
// backend: it turns a session into an order graph and submits it.
package checkout

import (
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
)

// BuildPlan derives the full order graph of a session. Nothing is sent if
// the session does not validate.
func BuildPlan(s domain.Session) (models.CheckoutRequest, error) {
	if err := s.Validate(); err != nil {
		return models.CheckoutRequest{}, err
	}
	pricing := s.Pricing()

	req := models.CheckoutRequest{
		IdempotencyKey: s.CheckoutKey,
		OrderType:      s.OrderType,
		CustomerName:   s.CustomerName,
		Totals:         pricing.Totals(),
		PaymentMethod:  s.PaymentMethod,
		PaymentStatus:  models.PaymentPaid,
		OccupyTable:    s.OrderType == models.DineIn && s.TableID != nil,
	}
	if s.OrderType == models.DineIn {
		req.TableID = s.TableID
	}

	for _, line := range s.Cart.Lines() {
		req.Items = append(req.Items, models.CheckoutLine{
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Modifiers:  line.Modifiers,
			Notes:      line.Notes,
		})
	}

	if applied, ok := s.Discount.Applied(); ok && pricing.DiscountAmount.IsPositive() {
		d := &models.CheckoutDiscount{
			DiscountID: applied.DiscountID,
			Name:       applied.Name,
			Kind:       applied.Kind,
			Value:      applied.Value,
			Amount:     pricing.DiscountAmount,
		}
		if applied.ApprovedBy != nil {
			id := applied.ApprovedBy.StaffID
			d.ApprovedBy = &id
		}
		req.Discount = d
	}

	if pricing.TipAmount.IsPositive() {
		req.Tip = &models.CheckoutTip{Type: s.Tip.Type, Value: s.Tip.Value, Amount: pricing.TipAmount}
	}

	if s.PaymentMethod == models.PaymentSplit {
		parts, err := s.SplitAmounts()
		if err != nil {
			return models.CheckoutRequest{}, err
		}
		req.PaymentStatus = models.PaymentPending
		req.Split = &models.CheckoutSplit{Type: s.Split.Type, Parts: append([]decimal.Decimal(nil), parts...)}
	}

	if err := req.Validate(); err != nil {
		return models.CheckoutRequest{}, err
	}
	return req, nil
}

// Remaining compares an order already created under the checkout key with
// the plan. done is set when the order was sent to the kitchen on an earlier
// attempt. Otherwise it returns the lines that still have to be added; the
// lines already on the order must be a prefix of the plan.
func Remaining(o *models.Order, req models.CheckoutRequest) (pending []models.CheckoutLine, done bool, err error) {
	if o.Status == models.StatusCancelled {
		return nil, false, models.Conflictf("order %s was cancelled", o.Number)
	}
	if o.Status != models.StatusOpen || o.Submitted() {
		return nil, true, nil
	}
	if len(o.Items) > len(req.Items) {
		return nil, false, models.Conflictf("order %s has more lines than the checkout", o.Number)
	}
	for i, item := range o.Items {
		line := req.Items[i]
		if item.MenuItemID != line.MenuItemID || item.Quantity != line.Quantity || !item.UnitPrice.Equal(line.UnitPrice) {
			return nil, false, models.Conflictf("order %s line %d does not match the checkout", o.Number, i+1)
		}
	}
	return req.Items[len(o.Items):], false, nil
}
