package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/rpc"
)

// Application error types that stop retries
const (
	errTypeValidation = "ValidationError"
	errTypeNotFound   = "NotFoundError"
	errTypeConflict   = "ConflictError"
	errTypePIN        = "InvalidPINError"
	errTypeStep       = "CheckoutStepError"
)

// Activities are the checkout steps, each one remote call to the backend
type Activities struct {
	API rpc.API
}

// TableChange remembers what a table was before the checkout seated it
type TableChange struct {
	TableID  int64              `json:"table_id"`
	Previous models.TableStatus `json:"previous"`
	Version  int64              `json:"version"`
	Changed  bool               `json:"changed"`
}

// SplitInput creates a split bill together with its parts
type SplitInput struct {
	OrderID int64                `json:"order_id"`
	Split   models.CheckoutSplit `json:"split"`
}

// classify marks errors that a retry cannot fix
func classify(err error) error {
	if err == nil {
		return nil
	}
	var verr models.ValidationError
	switch {
	case errors.As(err, &verr):
		return temporal.NewNonRetryableApplicationError(verr.Message, errTypeValidation, err, verr.Field)
	case errors.Is(err, models.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeNotFound, err)
	case errors.Is(err, models.ErrConflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeConflict, err)
	case errors.Is(err, models.ErrInvalidPIN):
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypePIN, err)
	default:
		return err
	}
}

func (a *Activities) CreateOrder(ctx context.Context, in models.CreateOrderInput) (*models.Order, error) {
	activity.GetLogger(ctx).Info("Creating order", "idempotencyKey", in.IdempotencyKey)
	order, err := a.API.CreateOrder(ctx, in)
	return order, classify(err)
}

func (a *Activities) AddOrderItem(ctx context.Context, in models.AddOrderItemInput) (*models.OrderItem, error) {
	item, err := a.API.AddOrderItem(ctx, in)
	return item, classify(err)
}

func (a *Activities) UpdateOrder(ctx context.Context, in models.UpdateOrderInput) (*models.Order, error) {
	order, err := a.API.UpdateOrder(ctx, in)
	return order, classify(err)
}

func (a *Activities) ApplyDiscount(ctx context.Context, in models.ApplyDiscountInput) (*models.DiscountApplication, error) {
	app, err := a.API.ApplyDiscount(ctx, in)
	return app, classify(err)
}

func (a *Activities) AddTip(ctx context.Context, in models.AddTipInput) (*models.Tip, error) {
	tip, err := a.API.AddTip(ctx, in)
	return tip, classify(err)
}

// OccupyTable seats the table, checking the version it read
func (a *Activities) OccupyTable(ctx context.Context, tableID int64) (TableChange, error) {
	tables, err := a.API.ListTables(ctx)
	if err != nil {
		return TableChange{}, classify(err)
	}
	for _, t := range tables {
		if t.ID != tableID {
			continue
		}
		updated, err := a.API.UpdateTable(ctx, models.UpdateTableInput{
			TableID:         tableID,
			Status:          models.TableOccupied,
			ExpectedVersion: t.Version,
		})
		if err != nil {
			return TableChange{}, classify(err)
		}
		return TableChange{
			TableID:  tableID,
			Previous: t.Status,
			Version:  updated.Version,
			Changed:  t.Status != models.TableOccupied,
		}, nil
	}
	return TableChange{}, classify(models.NotFoundf("table %d", tableID))
}

// RestoreTable undoes OccupyTable
func (a *Activities) RestoreTable(ctx context.Context, change TableChange) error {
	if !change.Changed {
		return nil
	}
	_, err := a.API.UpdateTable(ctx, models.UpdateTableInput{
		TableID:         change.TableID,
		Status:          change.Previous,
		ExpectedVersion: change.Version,
	})
	return classify(err)
}

func (a *Activities) CreateSplitBill(ctx context.Context, in SplitInput) (*models.SplitBill, error) {
	bill, err := a.API.GetSplitBill(ctx, models.GetSplitBillInput{OrderID: in.OrderID})
	switch {
	case errors.Is(err, models.ErrNotFound):
		bill, err = a.API.CreateSplitBill(ctx, models.CreateSplitBillInput{OrderID: in.OrderID, Type: in.Split.Type})
		if err != nil {
			return nil, classify(err)
		}
	case err != nil:
		return nil, classify(err)
	}

	// a retried attempt skips the parts that already landed
	have := make(map[int]bool, len(bill.Parts))
	for _, p := range bill.Parts {
		have[p.PartNumber] = true
	}
	for i, amount := range in.Split.Parts {
		if have[i+1] {
			continue
		}
		bill, err = a.API.AddSplitPart(ctx, models.AddSplitPartInput{SplitBillID: bill.ID, PartNumber: i + 1, Amount: amount})
		if err != nil {
			return nil, classify(err)
		}
	}
	return bill, nil
}

func (a *Activities) CancelOrder(ctx context.Context, orderID int64) error {
	activity.GetLogger(ctx).Info("Cancelling order", "orderID", orderID)
	_, err := a.API.CancelOrder(ctx, models.CancelOrderInput{OrderID: orderID, Reason: "Checkout failed"})
	return classify(err)
}

// LoadResult reads back the committed order and its split bill
func (a *Activities) LoadResult(ctx context.Context, orderID int64) (*models.CheckoutResult, error) {
	order, err := a.API.GetOrder(ctx, models.GetOrderInput{OrderID: orderID})
	if err != nil {
		return nil, classify(err)
	}
	result := &models.CheckoutResult{Order: order}
	if order.PaymentMethod == models.PaymentSplit {
		bill, err := a.API.GetSplitBill(ctx, models.GetSplitBillInput{OrderID: orderID})
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, classify(err)
		}
		result.SplitBill = bill
	}
	return result, nil
}
