package pos

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/money"
)

// ApprovalState is the state of the discount approval machine
type ApprovalState int

const (
	NoDiscount ApprovalState = iota
	PendingApproval
	Applied
)

func (s ApprovalState) String() string {
	switch s {
	case NoDiscount:
		return "no_discount"
	case PendingApproval:
		return "pending_approval"
	case Applied:
		return "applied"
	default:
		return fmt.Sprintf("approval_state(%d)", int(s))
	}
}

var ErrNoPendingApproval = errors.New("no discount is waiting for approval")

// PendingDiscountApproval is the snapshot held while a manager is asked for a PIN
type PendingDiscountApproval struct {
	Name             string              `json:"name"`
	Kind             models.DiscountKind `json:"kind"`
	Value            decimal.Decimal     `json:"value"`
	MaxAmount        decimal.NullDecimal `json:"max_amount"`
	Amount           decimal.Decimal     `json:"amount"`
	RequiresApproval bool                `json:"requires_approval"`
	DiscountID       *int64              `json:"discount_id,omitempty"`
}

// DiscountFlow gates whether a discount applies at once or waits for a manager
type DiscountFlow struct {
	state   ApprovalState
	pending *PendingDiscountApproval
	applied *DiscountState
}

func (f DiscountFlow) State() ApprovalState { return f.state }

// Pending returns the discount waiting for approval
func (f DiscountFlow) Pending() (PendingDiscountApproval, bool) {
	if f.state != PendingApproval || f.pending == nil {
		return PendingDiscountApproval{}, false
	}
	return *f.pending, true
}

// Applied returns the discount in effect
func (f DiscountFlow) Applied() (DiscountState, bool) {
	if f.state != Applied || f.applied == nil {
		return DiscountState{}, false
	}
	return *f.applied, true
}

func (f DiscountFlow) appliedPtr() *DiscountState {
	if f.state != Applied {
		return nil
	}
	return f.applied
}

// NeedsApproval reports whether a discount of amount on subtotal must be
// authorized by a manager. A positive amount on a zero subtotal always does.
func NeedsApproval(amount, subtotal decimal.Decimal, flagged bool, thresholdPct decimal.Decimal) bool {
	if flagged {
		return true
	}
	if !amount.IsPositive() {
		return false
	}
	if !subtotal.IsPositive() {
		return true
	}
	pct := amount.Div(subtotal).Mul(decimal.NewFromInt(100))
	return pct.GreaterThan(thresholdPct)
}

// Select evaluates a catalog discount against the subtotal and either applies
// it or parks it for approval
func (f DiscountFlow) Select(d models.CatalogDiscount, subtotal decimal.Decimal, policy Policy) (DiscountFlow, error) {
	if !d.Active {
		return f, models.ValidationError{Field: "discount", Message: fmt.Sprintf("discount %q is not active", d.Name)}
	}
	amount, err := AmountFor(d, subtotal)
	if err != nil {
		return f, err
	}

	var id *int64
	if d.ID != 0 {
		v := d.ID
		id = &v
	}

	if NeedsApproval(amount, subtotal, d.RequiresApproval, policy.ApprovalThresholdPct) {
		return DiscountFlow{
			state: PendingApproval,
			pending: &PendingDiscountApproval{
				Name:             d.Name,
				Kind:             d.Kind,
				Value:            d.Value,
				MaxAmount:        d.MaxDiscountAmount,
				Amount:           amount,
				RequiresApproval: d.RequiresApproval,
				DiscountID:       id,
			},
		}, nil
	}

	return DiscountFlow{
		state: Applied,
		applied: &DiscountState{
			Name:       d.Name,
			Kind:       d.Kind,
			Value:      d.Value,
			MaxAmount:  d.MaxDiscountAmount,
			Amount:     amount,
			DiscountID: id,
		},
	}, nil
}

// Approve moves a pending discount to applied. The PIN is only checked for
// length here; callers verify it with the backend first.
func (f DiscountFlow) Approve(pin string, approver *models.ManagerApproval, policy Policy) (DiscountFlow, error) {
	if f.state != PendingApproval || f.pending == nil {
		return f, ErrNoPendingApproval
	}
	if len(pin) < policy.PINMinLength {
		return f, fmt.Errorf("PIN must be at least %d digits: %w", policy.PINMinLength, models.ErrInvalidPIN)
	}
	p := f.pending
	return DiscountFlow{
		state: Applied,
		applied: &DiscountState{
			Name:       p.Name,
			Kind:       p.Kind,
			Value:      p.Value,
			MaxAmount:  p.MaxAmount,
			Amount:     p.Amount,
			DiscountID: p.DiscountID,
			ApprovedBy: approver,
		},
	}, nil
}

// Cancel discards a pending discount
func (f DiscountFlow) Cancel() (DiscountFlow, error) {
	if f.state != PendingApproval {
		return f, ErrNoPendingApproval
	}
	return DiscountFlow{}, nil
}

// SetManual enters a discount amount by hand. It passes the same threshold
// rule as catalog discounts unless the policy lets manual entries through.
func (f DiscountFlow) SetManual(amount decimal.Decimal, name string, subtotal decimal.Decimal, policy Policy) (DiscountFlow, error) {
	if amount.IsNegative() {
		return f, models.ValidationError{Field: "discount.amount", Message: "discount amount must not be negative"}
	}
	if name == "" {
		name = "Manual discount"
	}
	amount = money.Round(amount)
	if amount.IsZero() {
		return DiscountFlow{}, nil
	}

	if policy.ManualDiscountRequiresApproval && NeedsApproval(amount, subtotal, false, policy.ApprovalThresholdPct) {
		return DiscountFlow{
			state: PendingApproval,
			pending: &PendingDiscountApproval{
				Name:   name,
				Kind:   models.DiscountManual,
				Value:  amount,
				Amount: amount,
			},
		}, nil
	}
	return DiscountFlow{
		state: Applied,
		applied: &DiscountState{
			Name:   name,
			Kind:   models.DiscountManual,
			Value:  amount,
			Amount: amount,
		},
	}, nil
}

// Recheck re-evaluates an unapproved applied discount after the subtotal
// changed. A discount that now crosses the threshold goes back to
// PendingApproval.
func (f DiscountFlow) Recheck(subtotal decimal.Decimal, policy Policy) DiscountFlow {
	a := f.appliedPtr()
	if a == nil || a.ApprovedBy != nil {
		return f
	}
	if a.Kind == models.DiscountManual && !policy.ManualDiscountRequiresApproval {
		return f
	}
	amount := a.AmountFor(subtotal)
	if !NeedsApproval(amount, subtotal, false, policy.ApprovalThresholdPct) {
		return f
	}
	return DiscountFlow{
		state: PendingApproval,
		pending: &PendingDiscountApproval{
			Name:       a.Name,
			Kind:       a.Kind,
			Value:      a.Value,
			MaxAmount:  a.MaxAmount,
			Amount:     amount,
			DiscountID: a.DiscountID,
		},
	}
}

// Clear removes any discount
func (f DiscountFlow) Clear() DiscountFlow {
	return DiscountFlow{}
}
