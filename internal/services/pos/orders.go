package pos

import (
	"context"
	"errors"
	"fmt"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

const maxNumberTries = 3

// insertOrder numbers and stores a new order header with its first status entry
func (s *Service) insertOrder(ctx context.Context, tx store.Store, o *models.Order) error {
	now := s.now()
	seq, err := tx.NextOrderSequence(ctx, now)
	if err != nil {
		return err
	}
	o.Number = models.GenerateOrderNumber(now, seq)
	if err := tx.InsertOrder(ctx, o); err != nil {
		return err
	}
	return tx.AppendStatus(ctx, o.ID, models.StatusEntry{
		Status:    string(models.StatusOpen),
		ChangedBy: changedBy,
		ChangedAt: now,
		Notes:     "Order created",
	})
}

// withOrderNumber retries fn when two terminals raced for the same order
// number. A retry first checks whether the idempotency key already landed.
func (s *Service) withOrderNumber(ctx context.Context, key string, fn func() (*models.Order, error)) (*models.Order, bool, error) {
	var err error
	for attempt := 0; attempt < maxNumberTries; attempt++ {
		if key != "" {
			existing, lookupErr := s.store.OrderByIdempotencyKey(ctx, key)
			if lookupErr == nil {
				return existing, true, nil
			}
			if !errors.Is(lookupErr, models.ErrNotFound) {
				return nil, false, lookupErr
			}
		}
		var o *models.Order
		o, err = fn()
		if err == nil {
			return o, false, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, false, err
		}
	}
	return nil, false, err
}

func (s *Service) CreateOrder(ctx context.Context, in models.CreateOrderInput) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	order, _, err := s.withOrderNumber(ctx, in.IdempotencyKey, func() (*models.Order, error) {
		o := &models.Order{
			IdempotencyKey: in.IdempotencyKey,
			Type:           in.OrderType,
			TableID:        in.TableID,
			CustomerName:   in.CustomerName,
			Status:         models.StatusOpen,
			PaymentStatus:  models.PaymentPending,
			Priority:       1,
		}
		err := s.store.Atomic(ctx, func(tx store.Store) error {
			if o.TableID != nil {
				if _, err := tx.LockTables(ctx, []int64{*o.TableID}); err != nil {
					return err
				}
			}
			return s.insertOrder(ctx, tx, o)
		})
		return o, err
	})
	if err != nil {
		return nil, wrapf(err, "failed to create order")
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %s created", order.Number), "", map[string]interface{}{
		"order_number": order.Number,
		"order_type":   order.Type,
	})
	return s.store.GetOrder(ctx, order.ID)
}

// openOrder loads an order that may still be changed
func openOrder(ctx context.Context, tx store.Store, id int64) (*models.Order, error) {
	o, err := tx.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.StatusCancelled {
		return nil, models.Conflictf("order %s is cancelled", o.Number)
	}
	return o, nil
}

func (s *Service) AddOrderItem(ctx context.Context, in models.AddOrderItemInput) (*models.OrderItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	item := &models.OrderItem{
		OrderID:    in.OrderID,
		MenuItemID: in.MenuItemID,
		Name:       in.Name,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
		Modifiers:  in.Modifiers,
		Notes:      in.Notes,
		Status:     models.ItemQueued,
	}
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		o, err := openOrder(ctx, tx, in.OrderID)
		if err != nil {
			return err
		}
		if o.Status != models.StatusOpen {
			return models.Conflictf("order %s is %s", o.Number, o.Status)
		}
		return tx.InsertOrderItem(ctx, item)
	})
	if err != nil {
		return nil, wrapf(err, "failed to add item to order %d", in.OrderID)
	}
	return item, nil
}

// applyPayment copies totals and payment onto an order. Paying in full closes it.
func applyPayment(o *models.Order, totals models.OrderTotals, method models.PaymentMethod, status models.PaymentStatus) {
	o.Totals = totals
	o.PaymentMethod = method
	o.PaymentStatus = status
	o.Priority = models.CalculatePriority(totals.Total)
	if status == models.PaymentPaid {
		o.Status = models.StatusPaid
	}
}

// submit records the order as sent to the kitchen
func (s *Service) submit(ctx context.Context, tx store.Store, o *models.Order, oldStatus models.OrderStatus) error {
	now := s.now()
	if !o.Submitted() {
		if err := tx.AppendStatus(ctx, o.ID, models.StatusEntry{
			Status: models.HistorySubmitted, ChangedBy: changedBy, ChangedAt: now, Notes: "Sent to kitchen",
		}); err != nil {
			return err
		}
	}
	if o.Status != oldStatus {
		return tx.AppendStatus(ctx, o.ID, models.StatusEntry{
			Status: string(o.Status), ChangedBy: changedBy, ChangedAt: now,
			Notes: fmt.Sprintf("Paid by %s", o.PaymentMethod),
		})
	}
	return nil
}

func (s *Service) UpdateOrder(ctx context.Context, in models.UpdateOrderInput) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		oldStatus   models.OrderStatus
		firstSubmit bool
	)
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		o, err := openOrder(ctx, tx, in.OrderID)
		if err != nil {
			return err
		}
		oldStatus = o.Status
		firstSubmit = !o.Submitted()
		applyPayment(o, in.Totals, in.PaymentMethod, in.PaymentStatus)
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		return s.submit(ctx, tx, o, oldStatus)
	})
	if err != nil {
		return nil, wrapf(err, "failed to update order %d", in.OrderID)
	}

	order, err := s.store.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, order, string(oldStatus), firstSubmit)
	return order, nil
}

// CancelOrder undoes a checkout: the order's lines, discount and tip logs
// and split bill are deleted and the table it occupied is freed. Cancelling
// a cancelled order is a no-op.
func (s *Service) CancelOrder(ctx context.Context, in models.CancelOrderInput) (*models.Order, error) {
	if in.OrderID <= 0 {
		return nil, models.ValidationError{Field: "order_id", Message: "order id is required"}
	}

	var oldStatus models.OrderStatus
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		o, err := tx.GetOrder(ctx, in.OrderID)
		if err != nil {
			return err
		}
		oldStatus = o.Status
		if o.Status == models.StatusCancelled {
			return nil
		}

		cleanups := []func(context.Context, int64) error{
			tx.DeleteOrderItems, tx.DeleteDiscountApplications, tx.DeleteTips, tx.DeleteSplitBill,
		}
		for _, cleanup := range cleanups {
			if err := cleanup(ctx, o.ID); err != nil {
				return err
			}
		}

		if o.TableID != nil {
			tables, err := tx.LockTables(ctx, []int64{*o.TableID})
			if err != nil {
				return err
			}
			if tables[0].Status == models.TableOccupied {
				if _, err := tx.UpdateTableStatus(ctx, tables[0].ID, models.TableFree, 0); err != nil {
					return err
				}
			}
		}

		o.Status = models.StatusCancelled
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		reason := in.Reason
		if reason == "" {
			reason = "Order cancelled"
		}
		return tx.AppendStatus(ctx, o.ID, models.StatusEntry{
			Status: string(models.StatusCancelled), ChangedBy: changedBy, ChangedAt: s.now(), Notes: reason,
		})
	})
	if err != nil {
		return nil, wrapf(err, "failed to cancel order %d", in.OrderID)
	}

	order, err := s.store.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if oldStatus != models.StatusCancelled {
		s.logger.Info("order_cancelled", fmt.Sprintf("Order %s cancelled", order.Number), "", map[string]interface{}{
			"order_number": order.Number,
			"reason":       in.Reason,
		})
		s.announce(ctx, order, string(oldStatus), false)
	}
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, in models.GetOrderInput) (*models.Order, error) {
	if in.OrderID <= 0 {
		return nil, models.ValidationError{Field: "order_id", Message: "order id is required"}
	}
	return s.store.GetOrder(ctx, in.OrderID)
}

func (s *Service) ListOrders(ctx context.Context, in models.ListOrdersInput) ([]models.Order, error) {
	from, to, err := s.dayRange(in.Date)
	if err != nil {
		return nil, err
	}
	switch in.Status {
	case "", models.StatusOpen, models.StatusPaid, models.StatusCancelled:
	default:
		return nil, models.ValidationError{Field: "status", Message: "invalid order status"}
	}
	orders, err := s.store.ListOrders(ctx, from, to, in.Status)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// Checkout persists the whole order graph of one session in a single
// transaction. Replaying the same idempotency key returns the first result.
func (s *Service) Checkout(ctx context.Context, in models.CheckoutRequest) (*models.CheckoutResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	order, replayed, err := s.withOrderNumber(ctx, in.IdempotencyKey, func() (*models.Order, error) {
		o := &models.Order{
			IdempotencyKey: in.IdempotencyKey,
			Type:           in.OrderType,
			TableID:        in.TableID,
			CustomerName:   in.CustomerName,
			Status:         models.StatusOpen,
			PaymentStatus:  models.PaymentPending,
			Priority:       1,
		}
		err := s.store.Atomic(ctx, func(tx store.Store) error {
			return s.checkoutTx(ctx, tx, o, in)
		})
		return o, err
	})
	if err != nil {
		return nil, wrapf(err, "failed to check out")
	}

	result := &models.CheckoutResult{}
	result.Order, err = s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if bill, err := s.store.SplitBillByOrder(ctx, order.ID); err == nil {
		result.SplitBill = bill
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if !replayed {
		s.logger.Info("order_checked_out", fmt.Sprintf("Order %s checked out", result.Order.Number), "", map[string]interface{}{
			"order_number":   result.Order.Number,
			"total":          result.Order.Totals.Total.StringFixed(2),
			"payment_method": result.Order.PaymentMethod,
		})
		s.announce(ctx, result.Order, string(models.StatusOpen), true)
	}
	return result, nil
}

func (s *Service) checkoutTx(ctx context.Context, tx store.Store, o *models.Order, in models.CheckoutRequest) error {
	if o.TableID != nil {
		if _, err := tx.LockTables(ctx, []int64{*o.TableID}); err != nil {
			return err
		}
	}
	if err := s.insertOrder(ctx, tx, o); err != nil {
		return err
	}

	for _, line := range in.Items {
		item := &models.OrderItem{
			OrderID:    o.ID,
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Modifiers:  line.Modifiers,
			Notes:      line.Notes,
			Status:     models.ItemQueued,
		}
		if err := tx.InsertOrderItem(ctx, item); err != nil {
			return err
		}
	}

	applyPayment(o, in.Totals, in.PaymentMethod, in.PaymentStatus)
	if err := tx.UpdateOrder(ctx, o); err != nil {
		return err
	}
	if err := s.submit(ctx, tx, o, models.StatusOpen); err != nil {
		return err
	}

	if d := in.Discount; d != nil && d.Amount.IsPositive() {
		if err := s.checkApprover(ctx, tx, d.ApprovedBy); err != nil {
			return err
		}
		if err := tx.InsertDiscountApplication(ctx, &models.DiscountApplication{
			OrderID: o.ID, DiscountID: d.DiscountID, Name: d.Name, Kind: d.Kind,
			Value: d.Value, Amount: d.Amount, ApprovedBy: d.ApprovedBy,
		}); err != nil {
			return err
		}
	}

	if t := in.Tip; t != nil && t.Amount.IsPositive() {
		if err := tx.InsertTip(ctx, &models.Tip{OrderID: o.ID, Type: t.Type, Value: t.Value, Amount: t.Amount}); err != nil {
			return err
		}
	}

	if in.OccupyTable && o.TableID != nil {
		if _, err := tx.UpdateTableStatus(ctx, *o.TableID, models.TableOccupied, 0); err != nil {
			return err
		}
	}

	if in.PaymentMethod == models.PaymentSplit && in.Split != nil {
		bill := &models.SplitBill{OrderID: o.ID, Type: in.Split.Type}
		if err := tx.InsertSplitBill(ctx, bill); err != nil {
			return err
		}
		for i, amount := range in.Split.Parts {
			if err := tx.InsertSplitPart(ctx, bill.ID, models.SplitPart{PartNumber: i + 1, Amount: amount}); err != nil {
				return err
			}
		}
	}
	return nil
}
