package pos

import (
	"context"
	"fmt"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

func (s *Service) CreateSplitBill(ctx context.Context, in models.CreateSplitBillInput) (*models.SplitBill, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	bill := &models.SplitBill{OrderID: in.OrderID, Type: in.Type, Parts: []models.SplitPart{}}
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := openOrder(ctx, tx, in.OrderID); err != nil {
			return err
		}
		return tx.InsertSplitBill(ctx, bill)
	})
	if err != nil {
		return nil, wrapf(err, "failed to create split bill for order %d", in.OrderID)
	}
	return bill, nil
}

// AddSplitPart adds one payable share. Parts may never add up to more than
// the order total.
func (s *Service) AddSplitPart(ctx context.Context, in models.AddSplitPartInput) (*models.SplitBill, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var bill *models.SplitBill
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		current, err := tx.GetSplitBill(ctx, in.SplitBillID)
		if err != nil {
			return err
		}
		order, err := openOrder(ctx, tx, current.OrderID)
		if err != nil {
			return err
		}
		if sum := current.Total().Add(in.Amount); sum.GreaterThan(order.Totals.Total) {
			return models.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("parts would total %s, order total is %s", sum.StringFixed(2), order.Totals.Total.StringFixed(2)),
			}
		}
		part := models.SplitPart{PartNumber: in.PartNumber, Amount: in.Amount, Method: in.Method}
		if err := tx.InsertSplitPart(ctx, in.SplitBillID, part); err != nil {
			return err
		}
		bill, err = tx.GetSplitBill(ctx, in.SplitBillID)
		return err
	})
	if err != nil {
		return nil, wrapf(err, "failed to add part %d to split bill %d", in.PartNumber, in.SplitBillID)
	}
	return bill, nil
}

// PaySplitPart settles one whole part. The order becomes partially paid,
// and paid once every part is.
func (s *Service) PaySplitPart(ctx context.Context, in models.PaySplitPartInput) (*models.SplitBill, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var (
		bill      *models.SplitBill
		order     *models.Order
		oldStatus models.OrderStatus
	)
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		current, err := tx.GetSplitBill(ctx, in.SplitBillID)
		if err != nil {
			return err
		}
		order, err = openOrder(ctx, tx, current.OrderID)
		if err != nil {
			return err
		}
		oldStatus = order.Status

		if err := tx.MarkSplitPartPaid(ctx, in.SplitBillID, in.PartNumber, in.Method, s.now()); err != nil {
			return err
		}
		bill, err = tx.GetSplitBill(ctx, in.SplitBillID)
		if err != nil {
			return err
		}

		status := models.PaymentPartial
		if bill.Settled() {
			status = models.PaymentPaid
		}
		applyPayment(order, order.Totals, models.PaymentSplit, status)
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return tx.AppendStatus(ctx, order.ID, models.StatusEntry{
			Status:    string(order.Status),
			ChangedBy: changedBy,
			ChangedAt: s.now(),
			Notes:     fmt.Sprintf("Part %d paid by %s", in.PartNumber, in.Method),
		})
	})
	if err != nil {
		return nil, wrapf(err, "failed to pay part %d of split bill %d", in.PartNumber, in.SplitBillID)
	}

	if order.Status != oldStatus {
		s.logger.Info("split_bill_settled", fmt.Sprintf("Order %s fully paid", order.Number), "", map[string]interface{}{
			"order_number": order.Number,
			"parts":        len(bill.Parts),
		})
		s.announce(ctx, order, string(oldStatus), false)
	}
	return bill, nil
}

func (s *Service) GetSplitBill(ctx context.Context, in models.GetSplitBillInput) (*models.SplitBill, error) {
	if in.OrderID <= 0 {
		return nil, models.ValidationError{Field: "order_id", Message: "order id is required"}
	}
	return s.store.SplitBillByOrder(ctx, in.OrderID)
}

func (s *Service) ListDiscounts(ctx context.Context) ([]models.CatalogDiscount, error) {
	discounts, err := s.store.ListDiscounts(ctx)
	if err != nil {
		return nil, err
	}
	if discounts == nil {
		discounts = []models.CatalogDiscount{}
	}
	return discounts, nil
}

// checkApprover verifies that an approving staff id belongs to an active manager
func (s *Service) checkApprover(ctx context.Context, tx store.Store, approvedBy *int64) error {
	if approvedBy == nil {
		return nil
	}
	approvers, err := tx.ListApprovers(ctx)
	if err != nil {
		return err
	}
	for _, a := range approvers {
		if a.ID == *approvedBy {
			return nil
		}
	}
	return models.ValidationError{Field: "approved_by", Message: "approver is not an active manager"}
}

func (s *Service) ApplyDiscount(ctx context.Context, in models.ApplyDiscountInput) (*models.DiscountApplication, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	app := &models.DiscountApplication{
		OrderID:    in.OrderID,
		DiscountID: in.DiscountID,
		Name:       in.Name,
		Kind:       in.Kind,
		Value:      in.Value,
		Amount:     in.Amount,
		ApprovedBy: in.ApprovedBy,
	}
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := openOrder(ctx, tx, in.OrderID); err != nil {
			return err
		}
		if in.DiscountID != nil {
			if err := catalogContains(ctx, tx, *in.DiscountID); err != nil {
				return err
			}
		}
		if err := s.checkApprover(ctx, tx, in.ApprovedBy); err != nil {
			return err
		}
		return tx.InsertDiscountApplication(ctx, app)
	})
	if err != nil {
		return nil, wrapf(err, "failed to apply discount to order %d", in.OrderID)
	}
	return app, nil
}

func catalogContains(ctx context.Context, tx store.Store, id int64) error {
	discounts, err := tx.ListDiscounts(ctx)
	if err != nil {
		return err
	}
	for _, d := range discounts {
		if d.ID == id {
			return nil
		}
	}
	return models.NotFoundf("discount %d", id)
}

func (s *Service) AddTip(ctx context.Context, in models.AddTipInput) (*models.Tip, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tip := &models.Tip{OrderID: in.OrderID, Type: in.Type, Value: in.Value, Amount: in.Amount}
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := openOrder(ctx, tx, in.OrderID); err != nil {
			return err
		}
		return tx.InsertTip(ctx, tip)
	})
	if err != nil {
		return nil, wrapf(err, "failed to add tip to order %d", in.OrderID)
	}
	return tip, nil
}
