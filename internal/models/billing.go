package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType selects how a total is divided between parts
type SplitType string

const (
	SplitEqual        SplitType = "equal"
	SplitByItem       SplitType = "by_item"
	SplitByPercentage SplitType = "by_percentage"
)

// SplitPart is one independently payable share of an order
type SplitPart struct {
	PartNumber int             `json:"part_number"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	Paid       bool            `json:"paid"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

// SplitBill divides an existing order's total into parts
type SplitBill struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Type      SplitType   `json:"split_type"`
	Parts     []SplitPart `json:"parts"`
	CreatedAt time.Time   `json:"created_at"`
}

// Settled reports whether every part has been paid
func (b SplitBill) Settled() bool {
	if len(b.Parts) == 0 {
		return false
	}
	for _, p := range b.Parts {
		if !p.Paid {
			return false
		}
	}
	return true
}

// Total sums the part amounts
func (b SplitBill) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.Parts {
		total = total.Add(p.Amount)
	}
	return total
}

// DiscountKind is the variant tag of a discount
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
	DiscountManual     DiscountKind = "manual"
)

// CatalogDiscount is a discount defined in the discounts manager
type CatalogDiscount struct {
	ID                int64               `json:"id"`
	Name              string              `json:"name"`
	Kind              DiscountKind        `json:"kind"`
	Value             decimal.Decimal     `json:"value"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`
	RequiresApproval  bool                `json:"requires_approval"`
	Active            bool                `json:"active"`
}

// DiscountApplication is the log record of a discount applied to an order
type DiscountApplication struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	DiscountID *int64          `json:"discount_id,omitempty"`
	Name       string          `json:"name"`
	Kind       DiscountKind    `json:"kind"`
	Value      decimal.Decimal `json:"value"`
	Amount     decimal.Decimal `json:"amount"`
	ApprovedBy *int64          `json:"approved_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TipType says whether a tip value is a percentage of subtotal or a fixed amount
type TipType string

const (
	TipPercent TipType = "percent"
	TipFixed   TipType = "fixed"
)

// Tip is the log record of a tip added to an order
type Tip struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Type      TipType         `json:"tip_type"`
	Value     decimal.Decimal `json:"value"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateSplitBillInput is the input of splitBills.create
type CreateSplitBillInput struct {
	OrderID int64     `json:"order_id"`
	Type    SplitType `json:"split_type"`
}

// AddSplitPartInput is the input of splitBills.addPart
type AddSplitPartInput struct {
	SplitBillID int64           `json:"split_bill_id"`
	PartNumber  int             `json:"part_number"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method,omitempty"`
}

// PaySplitPartInput is the input of splitBills.payPart
type PaySplitPartInput struct {
	SplitBillID int64         `json:"split_bill_id"`
	PartNumber  int           `json:"part_number"`
	Method      PaymentMethod `json:"method"`
}

// GetSplitBillInput is the input of splitBills.get
type GetSplitBillInput struct {
	OrderID int64 `json:"order_id"`
}

// ApplyDiscountInput is the input of discountsManager.applyToOrder
type ApplyDiscountInput struct {
	OrderID    int64           `json:"order_id"`
	DiscountID *int64          `json:"discount_id,omitempty"`
	Name       string          `json:"name"`
	Kind       DiscountKind    `json:"kind"`
	Value      decimal.Decimal `json:"value"`
	Amount     decimal.Decimal `json:"amount"`
	ApprovedBy *int64          `json:"approved_by,omitempty"`
}

// AddTipInput is the input of tips.addToOrder
type AddTipInput struct {
	OrderID int64           `json:"order_id"`
	Type    TipType         `json:"tip_type"`
	Value   decimal.Decimal `json:"value"`
	Amount  decimal.Decimal `json:"amount"`
}
