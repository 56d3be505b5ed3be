package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/rpc"
)

var ErrNoSplitBill = errors.New("no split bill is open")

// Terminal is one POS station: the current checkout session, the backend it
// talks to and the strategy it submits with. A Terminal is driven by a single
// operator and is not safe for concurrent use.
type Terminal struct {
	id        string
	api       rpc.API
	submitter Submitter
	session   domain.Session
	bill      *models.SplitBill
	logger    *logger.Logger
}

func NewTerminal(id string, api rpc.API, submitter Submitter, policy domain.Policy, log *logger.Logger) *Terminal {
	return &Terminal{
		id:        id,
		api:       api,
		submitter: submitter,
		session:   domain.NewSession(policy),
		logger:    log,
	}
}

// Session returns the current session value
func (t *Terminal) Session() domain.Session {
	return t.session
}

// Dispatch applies one command to the session
func (t *Terminal) Dispatch(cmd domain.Command) error {
	next, err := t.session.Apply(cmd)
	if err != nil {
		return err
	}
	t.session = next
	return nil
}

// ApproveDiscount authorizes the pending discount with a manager PIN. Short
// PINs are rejected before any remote call.
func (t *Terminal) ApproveDiscount(ctx context.Context, pin string) error {
	if _, ok := t.session.Discount.Pending(); !ok {
		return domain.ErrNoPendingApproval
	}
	if minLen := t.session.Policy.PINMinLength; len(pin) < minLen {
		return models.ValidationError{Field: "pin", Message: fmt.Sprintf("PIN must be at least %d digits", minLen)}
	}

	approval, err := t.api.VerifyManagerPin(ctx, models.VerifyManagerPinInput{PIN: pin, TerminalID: t.id})
	if err != nil {
		return err
	}
	return t.Dispatch(domain.ApproveDiscount{PIN: pin, Approver: approval})
}

// Charge validates the session and submits it. On success the session
// starts over; a split bill stays open for PaySplitPart.
func (t *Terminal) Charge(ctx context.Context) (*models.CheckoutResult, error) {
	req, err := BuildPlan(t.session)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := t.submitter.Submit(ctx, req)
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) && stepErr.Compensated {
			// the order behind the old key is cancelled
			t.session.CheckoutKey = uuid.NewString()
		}
		return nil, err
	}

	t.logger.Info("checkout_completed", fmt.Sprintf("Order %s submitted", result.Order.Number), "", map[string]interface{}{
		"terminal_id":  t.id,
		"order_number": result.Order.Number,
		"total":        result.Order.Totals.Total.StringFixed(2),
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	t.bill = result.SplitBill
	return result, t.Dispatch(domain.Reset{})
}

// PaySplitPart settles one part of the open split bill in cash or by card
func (t *Terminal) PaySplitPart(ctx context.Context, part int, method models.PaymentMethod) (*models.SplitBill, error) {
	if t.bill == nil {
		return nil, ErrNoSplitBill
	}
	bill, err := t.api.PaySplitPart(ctx, models.PaySplitPartInput{SplitBillID: t.bill.ID, PartNumber: part, Method: method})
	if err != nil {
		return nil, err
	}
	t.bill = bill
	return bill, nil
}

// SplitBill returns the open split bill, if any
func (t *Terminal) SplitBill() *models.SplitBill {
	return t.bill
}

// Settled reports whether every part of the open split bill is paid
func (t *Terminal) Settled() bool {
	return t.bill != nil && t.bill.Settled()
}
