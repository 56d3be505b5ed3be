package pos

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

// Session is one checkout interaction at a terminal. It is a value: Apply
// returns the next session and never modifies the current one.
type Session struct {
	OrderType     models.OrderType
	TableID       *int64
	CustomerName  string
	Cart          Cart
	Discount      DiscountFlow
	Tip           Tip
	PaymentMethod models.PaymentMethod
	Split         *SplitPlan
	CheckoutKey   string
	Policy        Policy
}

// NewSession starts an empty takeout session with a fresh checkout key
func NewSession(policy Policy) Session {
	return Session{
		OrderType:   models.Takeout,
		CheckoutKey: uuid.NewString(),
		Policy:      policy,
	}
}

// Command is an input to Session.Apply
type Command interface {
	command()
}

// AddItem taps a menu item
type AddItem struct{ Item MenuItem }

type IncrementLine struct{ Index int }

type DecrementLine struct{ Index int }

type RemoveLine struct{ Index int }

type SetLineNotes struct {
	Index int
	Notes string
}

// SelectDiscount picks a catalog discount
type SelectDiscount struct{ Discount models.CatalogDiscount }

// ApproveDiscount completes a pending discount with a manager PIN that the
// backend has already verified
type ApproveDiscount struct {
	PIN      string
	Approver *models.ManagerApproval
}

type CancelDiscount struct{}

type SetManualDiscount struct {
	Amount decimal.Decimal
	Name   string
}

type ClearDiscount struct{}

type SetTip struct{ Tip Tip }

type SetOrderType struct{ Type models.OrderType }

type SetTable struct{ TableID *int64 }

type SetCustomer struct{ Name string }

type SetPayment struct{ Method models.PaymentMethod }

// SetSplit chooses split payment; a nil plan clears it
type SetSplit struct{ Plan *SplitPlan }

// Reset discards the session and issues a new checkout key
type Reset struct{}

func (AddItem) command()           {}
func (IncrementLine) command()     {}
func (DecrementLine) command()     {}
func (RemoveLine) command()        {}
func (SetLineNotes) command()      {}
func (SelectDiscount) command()    {}
func (ApproveDiscount) command()   {}
func (CancelDiscount) command()    {}
func (SetManualDiscount) command() {}
func (ClearDiscount) command()     {}
func (SetTip) command()            {}
func (SetOrderType) command()      {}
func (SetTable) command()          {}
func (SetCustomer) command()       {}
func (SetPayment) command()        {}
func (SetSplit) command()          {}
func (Reset) command()             {}

// Apply reduces a command onto the session. On error the returned session is
// the receiver unchanged.
func (s Session) Apply(cmd Command) (Session, error) {
	next := s
	var err error

	switch c := cmd.(type) {
	case AddItem:
		next.Cart, err = s.Cart.Add(c.Item)
	case IncrementLine:
		next.Cart, err = s.Cart.Increment(c.Index)
	case DecrementLine:
		next.Cart, err = s.Cart.Decrement(c.Index)
	case RemoveLine:
		next.Cart, err = s.Cart.Remove(c.Index)
	case SetLineNotes:
		next.Cart, err = s.Cart.SetNotes(c.Index, c.Notes)
	case SelectDiscount:
		next.Discount, err = s.Discount.Select(c.Discount, s.subtotal(), s.Policy)
	case ApproveDiscount:
		next.Discount, err = s.Discount.Approve(c.PIN, c.Approver, s.Policy)
	case CancelDiscount:
		next.Discount, err = s.Discount.Cancel()
	case SetManualDiscount:
		next.Discount, err = s.Discount.SetManual(c.Amount, c.Name, s.subtotal(), s.Policy)
	case ClearDiscount:
		next.Discount = s.Discount.Clear()
	case SetTip:
		switch {
		case c.Tip.Value.IsNegative():
			err = models.ValidationError{Field: "tip", Message: "tip must not be negative"}
		case c.Tip.Type == models.TipPercent, c.Tip.Type == models.TipFixed:
		case c.Tip.Type == "" && c.Tip.Value.IsZero():
			// no tip
		default:
			err = models.ValidationError{Field: "tip.type", Message: "tip type must be percent or fixed"}
		}
		next.Tip = c.Tip
	case SetOrderType:
		switch c.Type {
		case models.DineIn, models.Takeout, models.Delivery:
			next.OrderType = c.Type
		default:
			err = models.ValidationError{Field: "order_type", Message: "invalid order type"}
		}
	case SetTable:
		next.TableID = c.TableID
	case SetCustomer:
		next.CustomerName = c.Name
	case SetPayment:
		next.PaymentMethod = c.Method
		if c.Method != models.PaymentSplit {
			next.Split = nil
		}
	case SetSplit:
		next.Split = c.Plan
		if c.Plan != nil {
			next.PaymentMethod = models.PaymentSplit
		}
	case Reset:
		next = NewSession(s.Policy)
	default:
		err = fmt.Errorf("unknown checkout command %T", cmd)
	}

	if err != nil {
		return s, err
	}
	next.Discount = next.Discount.Recheck(next.subtotal(), next.Policy)
	return next, nil
}

func (s Session) subtotal() decimal.Decimal {
	return s.Cart.Subtotal().Round(2)
}

// Pricing derives the current snapshot
func (s Session) Pricing() PricingSnapshot {
	return Price(s.Cart, s.Discount.appliedPtr(), s.Tip, s.Policy.Rates)
}

// Validate runs every check that must pass before anything is sent to the backend
func (s Session) Validate() error {
	if s.Cart.IsEmpty() {
		return models.ValidationError{Field: "cart", Message: "cart is empty"}
	}
	if s.CustomerName == "" {
		return models.ValidationError{Field: "customer_name", Message: "customer name is required"}
	}
	if s.OrderType == models.DineIn && (s.TableID == nil || *s.TableID <= 0) {
		return models.ValidationError{Field: "table_id", Message: "select a table for dine-in orders"}
	}
	if s.Discount.State() == PendingApproval {
		return models.ValidationError{Field: "discount", Message: "discount is waiting for manager approval"}
	}
	switch s.PaymentMethod {
	case models.PaymentCash, models.PaymentCard:
	case models.PaymentSplit:
		if s.Split == nil {
			return models.ValidationError{Field: "split", Message: "choose how to split the bill"}
		}
		if err := s.Split.Validate(s.Cart, s.Policy); err != nil {
			return err
		}
	case "":
		return models.ValidationError{Field: "payment_method", Message: "payment method is required"}
	default:
		return models.ValidationError{Field: "payment_method", Message: "invalid payment method"}
	}
	return nil
}

// SplitAmounts divides the current total according to the split plan
func (s Session) SplitAmounts() ([]decimal.Decimal, error) {
	if s.Split == nil {
		return nil, models.ValidationError{Field: "split", Message: "choose how to split the bill"}
	}
	return Split(s.Pricing().Total, s.Cart, *s.Split, s.Policy)
}
