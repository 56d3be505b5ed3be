package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/rpc"
)

const defaultCompensationTimeout = 15 * time.Second

// SagaSubmitter runs the submission as a sequence of remote calls. Every
// step that succeeds registers a compensation; when a later step fails they
// run in reverse order, unless compensation is switched off.
type SagaSubmitter struct {
	api                 rpc.API
	compensate          bool
	compensationTimeout time.Duration
	logger              *logger.Logger
}

func NewSagaSubmitter(api rpc.API, compensate bool, compensationTimeout time.Duration, log *logger.Logger) *SagaSubmitter {
	if compensationTimeout <= 0 {
		compensationTimeout = defaultCompensationTimeout
	}
	return &SagaSubmitter{
		api:                 api,
		compensate:          compensate,
		compensationTimeout: compensationTimeout,
		logger:              log,
	}
}

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

type saga struct {
	*SagaSubmitter
	req   models.CheckoutRequest
	undo  []compensation
	order *models.Order
	bill  *models.SplitBill
}

func (s *SagaSubmitter) Submit(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResult, error) {
	run := &saga{SagaSubmitter: s, req: req}

	step, err := run.execute(ctx)
	if err == nil {
		return run.result(ctx)
	}

	stepErr := &StepError{Step: step, Err: err}
	fields := map[string]interface{}{
		"step":            step,
		"idempotency_key": req.IdempotencyKey,
	}
	if run.order != nil {
		fields["order_number"] = run.order.Number
	}
	s.logger.Error("checkout_step_failed", fmt.Sprintf("Checkout failed at %s", step), "", err, fields)

	if s.compensate && len(run.undo) > 0 {
		if cerr := run.rollback(ctx); cerr != nil {
			stepErr.Err = errors.Join(err, cerr)
		} else {
			stepErr.Compensated = true
		}
	}
	return nil, stepErr
}

// execute runs every step and returns the name of the one that failed
func (r *saga) execute(ctx context.Context) (string, error) {
	req := r.req

	order, err := r.api.CreateOrder(ctx, models.CreateOrderInput{
		IdempotencyKey: req.IdempotencyKey,
		OrderType:      req.OrderType,
		TableID:        req.TableID,
		CustomerName:   req.CustomerName,
	})
	if err != nil {
		return StepCreateOrder, err
	}
	r.order = order

	// The key may have produced an order on an earlier attempt
	pending, done, err := Remaining(order, req)
	if err != nil {
		return StepCreateOrder, err
	}
	if done {
		return "", nil
	}

	r.register("cancel_order", func(ctx context.Context) error {
		_, err := r.api.CancelOrder(ctx, models.CancelOrderInput{OrderID: order.ID, Reason: "Checkout failed"})
		return err
	})

	for _, line := range pending {
		if _, err := r.api.AddOrderItem(ctx, models.AddOrderItemInput{
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Modifiers:  line.Modifiers,
			Notes:      line.Notes,
		}); err != nil {
			return StepAddItem, err
		}
	}

	if _, err := r.api.UpdateOrder(ctx, models.UpdateOrderInput{
		OrderID:       order.ID,
		Totals:        req.Totals,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
	}); err != nil {
		return StepUpdateOrder, err
	}

	if d := req.Discount; d != nil && d.Amount.IsPositive() {
		if _, err := r.api.ApplyDiscount(ctx, models.ApplyDiscountInput{
			OrderID:    order.ID,
			DiscountID: d.DiscountID,
			Name:       d.Name,
			Kind:       d.Kind,
			Value:      d.Value,
			Amount:     d.Amount,
			ApprovedBy: d.ApprovedBy,
		}); err != nil {
			return StepApplyDiscount, err
		}
	}

	if t := req.Tip; t != nil && t.Amount.IsPositive() {
		if _, err := r.api.AddTip(ctx, models.AddTipInput{OrderID: order.ID, Type: t.Type, Value: t.Value, Amount: t.Amount}); err != nil {
			return StepAddTip, err
		}
	}

	if req.OccupyTable && req.TableID != nil {
		if err := r.occupyTable(ctx, *req.TableID); err != nil {
			return StepOccupyTable, err
		}
	}

	if req.PaymentMethod == models.PaymentSplit && req.Split != nil {
		bill, err := r.api.CreateSplitBill(ctx, models.CreateSplitBillInput{OrderID: order.ID, Type: req.Split.Type})
		if err != nil {
			return StepSplitBill, err
		}
		for i, amount := range req.Split.Parts {
			bill, err = r.api.AddSplitPart(ctx, models.AddSplitPartInput{SplitBillID: bill.ID, PartNumber: i + 1, Amount: amount})
			if err != nil {
				return StepSplitBill, err
			}
		}
		r.bill = bill
	}
	return "", nil
}

// occupyTable seats the order's table and remembers what it was before
func (r *saga) occupyTable(ctx context.Context, tableID int64) error {
	tables, err := r.api.ListTables(ctx)
	if err != nil {
		return err
	}
	var previous *models.Table
	for i := range tables {
		if tables[i].ID == tableID {
			previous = &tables[i]
			break
		}
	}
	if previous == nil {
		return models.NotFoundf("table %d", tableID)
	}

	updated, err := r.api.UpdateTable(ctx, models.UpdateTableInput{
		TableID:         tableID,
		Status:          models.TableOccupied,
		ExpectedVersion: previous.Version,
	})
	if err != nil {
		return err
	}
	if previous.Status == models.TableOccupied {
		return nil
	}
	r.register("restore_table", func(ctx context.Context) error {
		_, err := r.api.UpdateTable(ctx, models.UpdateTableInput{
			TableID:         tableID,
			Status:          previous.Status,
			ExpectedVersion: updated.Version,
		})
		return err
	})
	return nil
}

func (r *saga) register(name string, undo func(ctx context.Context) error) {
	r.undo = append(r.undo, compensation{name: name, undo: undo})
}

// rollback runs the compensations newest first on a context that outlives
// the caller's, so an abandoned checkout still cleans up
func (r *saga) rollback(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.compensationTimeout)
	defer cancel()

	var errs []error
	for i := len(r.undo) - 1; i >= 0; i-- {
		c := r.undo[i]
		if err := c.undo(ctx); err != nil {
			r.logger.Error("checkout_compensation_failed", fmt.Sprintf("Compensation %s failed", c.name), "", err, nil)
			errs = append(errs, fmt.Errorf("compensation %s: %w", c.name, err))
		}
	}
	if len(errs) == 0 {
		r.logger.Info("checkout_compensated", "Checkout rolled back", "", map[string]interface{}{
			"order_number": r.order.Number,
			"steps":        len(r.undo),
		})
	}
	return errors.Join(errs...)
}

func (r *saga) result(ctx context.Context) (*models.CheckoutResult, error) {
	order, err := r.api.GetOrder(ctx, models.GetOrderInput{OrderID: r.order.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to reload order %s: %w", r.order.Number, err)
	}
	result := &models.CheckoutResult{Order: order, SplitBill: r.bill}
	if result.SplitBill == nil && order.PaymentMethod == models.PaymentSplit {
		bill, err := r.api.GetSplitBill(ctx, models.GetSplitBillInput{OrderID: order.ID})
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		result.SplitBill = bill
	}
	return result, nil
}
