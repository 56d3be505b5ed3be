package pos

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/money"
)

// ZReport totals one business day and stores the result. Revenue counts
// paid orders; a split order contributes the parts paid so far to the
// payment method breakdown.
func (s *Service) ZReport(ctx context.Context, in models.ZReportInput) (*models.ZReport, error) {
	from, to, err := s.dayRange(in.Date)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrders(ctx, from, to, "")
	if err != nil {
		return nil, err
	}

	report := &models.ZReport{
		BusinessDate:    from.Format("2006-01-02"),
		Subtotal:        money.Zero,
		Tax:             money.Zero,
		ServiceCharge:   money.Zero,
		Discounts:       money.Zero,
		Tips:            money.Zero,
		Total:           money.Zero,
		ByPaymentMethod: map[models.PaymentMethod]decimal.Decimal{},
		GeneratedAt:     s.now(),
	}
	for i := range orders {
		o := &orders[i]
		if o.Status == models.StatusCancelled {
			report.CancelledCount++
			continue
		}
		report.OrdersCount++

		if o.PaymentMethod == models.PaymentSplit {
			bill, err := s.store.SplitBillByOrder(ctx, o.ID)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
			if bill != nil {
				for _, p := range bill.Parts {
					if p.Paid {
						addTo(report.ByPaymentMethod, p.Method, p.Amount)
					}
				}
			}
		} else if o.Status == models.StatusPaid {
			addTo(report.ByPaymentMethod, o.PaymentMethod, o.Totals.Total)
		}

		if o.Status != models.StatusPaid {
			continue
		}
		report.Subtotal = report.Subtotal.Add(o.Totals.Subtotal)
		report.Tax = report.Tax.Add(o.Totals.Tax)
		report.ServiceCharge = report.ServiceCharge.Add(o.Totals.ServiceCharge)
		report.Discounts = report.Discounts.Add(o.Totals.DiscountAmount)
		report.Tips = report.Tips.Add(o.Totals.TipAmount)
		report.Total = report.Total.Add(o.Totals.Total)
	}

	if err := s.store.UpsertZReport(ctx, report); err != nil {
		return nil, wrapf(err, "failed to store z-report for %s", report.BusinessDate)
	}
	return report, nil
}

func addTo(into map[models.PaymentMethod]decimal.Decimal, method models.PaymentMethod, amount decimal.Decimal) {
	into[method] = into[method].Add(amount)
}
