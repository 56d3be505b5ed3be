package checkout

import (
	"context"
	"errors"
	"fmt"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/rpc"
)

// Submission steps, in the order the saga runs them
const (
	StepCreateOrder   = "create_order"
	StepAddItem       = "add_item"
	StepUpdateOrder   = "update_order"
	StepApplyDiscount = "apply_discount"
	StepAddTip        = "add_tip"
	StepOccupyTable   = "occupy_table"
	StepSplitBill     = "split_bill"
	StepCheckout      = "checkout"
)

// Submitter persists a checkout plan
type Submitter interface {
	Submit(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResult, error)
}

// StepError reports which submission step failed. Compensated is set when
// the steps that had succeeded were undone.
type StepError struct {
	Step        string
	Err         error
	Compensated bool
}

func (e *StepError) Error() string {
	return fmt.Sprintf("checkout step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// UserMessage is the toast shown for a failed action
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr models.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, models.ErrInvalidPIN):
		return "Invalid manager PIN"
	case errors.Is(err, models.ErrThrottled):
		return "Too many PIN attempts, try again shortly"
	default:
		return "Failed to create order"
	}
}

// AtomicSubmitter sends the whole graph as one transactional call
type AtomicSubmitter struct {
	api rpc.API
}

func NewAtomicSubmitter(api rpc.API) *AtomicSubmitter {
	return &AtomicSubmitter{api: api}
}

func (s *AtomicSubmitter) Submit(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResult, error) {
	result, err := s.api.Checkout(ctx, req)
	if err != nil {
		return nil, &StepError{Step: StepCheckout, Err: err}
	}
	return result, nil
}
