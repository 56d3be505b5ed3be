// Package workflows runs checkout submission as a durable Temporal workflow:
// every step is an activity with retries, and the steps that succeeded are
// compensated when a later one fails for good.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/checkout"
)

// CheckoutInput is the workflow argument
type CheckoutInput struct {
	Request    models.CheckoutRequest `json:"request"`
	Compensate bool                   `json:"compensate"`
}

// StepFailure is attached to the error of a failed checkout
type StepFailure struct {
	Step        string `json:"step"`
	Compensated bool   `json:"compensated"`
}

// CheckoutStatus is returned by the get-status query
type CheckoutStatus struct {
	Stage       string `json:"stage"`
	OrderNumber string `json:"order_number,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

const QueryStatus = "get-status"

// CheckoutWorkflow submits one checkout the same way the saga submitter does
func CheckoutWorkflow(ctx workflow.Context, in CheckoutInput) (*models.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	req := in.Request
	status := CheckoutStatus{Stage: "start"}

	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:        time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        30 * time.Second,
		MaximumAttempts:        5,
		NonRetryableErrorTypes: []string{errTypeValidation, errTypeNotFound, errTypeConflict, errTypePIN},
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         retryPolicy,
	})

	if err := workflow.SetQueryHandler(ctx, QueryStatus, func() (CheckoutStatus, error) {
		return status, nil
	}); err != nil {
		return nil, err
	}

	var (
		a    *Activities
		undo []func(workflow.Context) error
	)
	fail := func(step string, err error) (*models.CheckoutResult, error) {
		status.Stage = "failed"
		status.LastError = err.Error()
		logger.Error("Checkout step failed", "step", step, "error", err)

		compensated := false
		if in.Compensate && len(undo) > 0 {
			status.Stage = "compensating"
			dctx, _ := workflow.NewDisconnectedContext(ctx)
			compensated = true
			for i := len(undo) - 1; i >= 0; i-- {
				if cerr := undo[i](dctx); cerr != nil {
					logger.Error("Compensation failed", "error", cerr)
					compensated = false
				}
			}
			status.Stage = "compensated"
		}
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("checkout step %s failed", step), errTypeStep, err,
			StepFailure{Step: step, Compensated: compensated},
		)
	}

	status.Stage = checkout.StepCreateOrder
	var order models.Order
	if err := workflow.ExecuteActivity(ctx, a.CreateOrder, models.CreateOrderInput{
		IdempotencyKey: req.IdempotencyKey,
		OrderType:      req.OrderType,
		TableID:        req.TableID,
		CustomerName:   req.CustomerName,
	}).Get(ctx, &order); err != nil {
		return fail(checkout.StepCreateOrder, err)
	}
	status.OrderNumber = order.Number

	pending, done, err := checkout.Remaining(&order, req)
	if err != nil {
		return fail(checkout.StepCreateOrder, temporal.NewNonRetryableApplicationError(err.Error(), errTypeConflict, err))
	}
	if done {
		logger.Info("Checkout already submitted", "order", order.Number)
		return loadResult(ctx, &status, order.ID)
	}

	undo = append(undo, func(ctx workflow.Context) error {
		return workflow.ExecuteActivity(ctx, a.CancelOrder, order.ID).Get(ctx, nil)
	})

	status.Stage = checkout.StepAddItem
	for _, line := range pending {
		if err := workflow.ExecuteActivity(ctx, a.AddOrderItem, models.AddOrderItemInput{
			OrderID:    order.ID,
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Modifiers:  line.Modifiers,
			Notes:      line.Notes,
		}).Get(ctx, nil); err != nil {
			return fail(checkout.StepAddItem, err)
		}
	}

	status.Stage = checkout.StepUpdateOrder
	if err := workflow.ExecuteActivity(ctx, a.UpdateOrder, models.UpdateOrderInput{
		OrderID:       order.ID,
		Totals:        req.Totals,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
	}).Get(ctx, nil); err != nil {
		return fail(checkout.StepUpdateOrder, err)
	}

	if d := req.Discount; d != nil && d.Amount.IsPositive() {
		status.Stage = checkout.StepApplyDiscount
		if err := workflow.ExecuteActivity(ctx, a.ApplyDiscount, models.ApplyDiscountInput{
			OrderID:    order.ID,
			DiscountID: d.DiscountID,
			Name:       d.Name,
			Kind:       d.Kind,
			Value:      d.Value,
			Amount:     d.Amount,
			ApprovedBy: d.ApprovedBy,
		}).Get(ctx, nil); err != nil {
			return fail(checkout.StepApplyDiscount, err)
		}
	}

	if t := req.Tip; t != nil && t.Amount.IsPositive() {
		status.Stage = checkout.StepAddTip
		if err := workflow.ExecuteActivity(ctx, a.AddTip, models.AddTipInput{
			OrderID: order.ID, Type: t.Type, Value: t.Value, Amount: t.Amount,
		}).Get(ctx, nil); err != nil {
			return fail(checkout.StepAddTip, err)
		}
	}

	if req.OccupyTable && req.TableID != nil {
		status.Stage = checkout.StepOccupyTable
		var change TableChange
		if err := workflow.ExecuteActivity(ctx, a.OccupyTable, *req.TableID).Get(ctx, &change); err != nil {
			return fail(checkout.StepOccupyTable, err)
		}
		undo = append(undo, func(ctx workflow.Context) error {
			return workflow.ExecuteActivity(ctx, a.RestoreTable, change).Get(ctx, nil)
		})
	}

	if req.PaymentMethod == models.PaymentSplit && req.Split != nil {
		status.Stage = checkout.StepSplitBill
		if err := workflow.ExecuteActivity(ctx, a.CreateSplitBill, SplitInput{OrderID: order.ID, Split: *req.Split}).Get(ctx, nil); err != nil {
			return fail(checkout.StepSplitBill, err)
		}
	}

	logger.Info("Checkout submitted", "order", order.Number)
	return loadResult(ctx, &status, order.ID)
}

func loadResult(ctx workflow.Context, status *CheckoutStatus, orderID int64) (*models.CheckoutResult, error) {
	var (
		a      *Activities
		result models.CheckoutResult
	)
	if err := workflow.ExecuteActivity(ctx, a.LoadResult, orderID).Get(ctx, &result); err != nil {
		return nil, err
	}
	status.Stage = "completed"
	return &result, nil
}
