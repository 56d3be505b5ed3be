package models

import "github.com/shopspring/decimal"

// CheckoutLine is one cart line carried in a checkout request
type CheckoutLine struct {
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Modifiers  []Modifier      `json:"modifiers,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// CheckoutSplit describes the split bill to open with the order
type CheckoutSplit struct {
	Type  SplitType         `json:"split_type"`
	Parts []decimal.Decimal `json:"parts"`
}

// CheckoutDiscount is the discount log entry submitted with an order
type CheckoutDiscount struct {
	DiscountID *int64          `json:"discount_id,omitempty"`
	Name       string          `json:"name"`
	Kind       DiscountKind    `json:"kind"`
	Value      decimal.Decimal `json:"value"`
	Amount     decimal.Decimal `json:"amount"`
	ApprovedBy *int64          `json:"approved_by,omitempty"`
}

// CheckoutTip is the tip log entry submitted with an order
type CheckoutTip struct {
	Type   TipType         `json:"tip_type"`
	Value  decimal.Decimal `json:"value"`
	Amount decimal.Decimal `json:"amount"`
}

// CheckoutRequest is the complete order graph of one checkout session
type CheckoutRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	OrderType      OrderType         `json:"order_type"`
	TableID        *int64            `json:"table_id,omitempty"`
	CustomerName   string            `json:"customer_name"`
	Items          []CheckoutLine    `json:"items"`
	Totals         OrderTotals       `json:"totals"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	PaymentStatus  PaymentStatus     `json:"payment_status"`
	Discount       *CheckoutDiscount `json:"discount,omitempty"`
	Tip            *CheckoutTip      `json:"tip,omitempty"`
	OccupyTable    bool              `json:"occupy_table"`
	Split          *CheckoutSplit    `json:"split,omitempty"`
}

// CheckoutResult is what a completed checkout produced
type CheckoutResult struct {
	Order     *Order     `json:"order"`
	SplitBill *SplitBill `json:"split_bill,omitempty"`
}
