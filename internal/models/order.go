package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType represents the type of an order
type OrderType string

const (
	DineIn   OrderType = "dine_in"
	Takeout  OrderType = "takeout"
	Delivery OrderType = "delivery"
)

// OrderStatus represents the lifecycle status of an order header
type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
)

// ItemStatus tracks a line through the kitchen
type ItemStatus string

const (
	ItemQueued  ItemStatus = "queued"
	ItemCooking ItemStatus = "cooking"
	ItemReady   ItemStatus = "ready"
)

// PaymentMethod is how an order (or a split part) is paid
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentSplit PaymentMethod = "split"
)

// PaymentStatus is the settlement state of an order
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Modifier is a priced add-on attached to a line item
type Modifier struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderItem represents an item in an order
type OrderItem struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Modifiers  []Modifier      `json:"modifiers"`
	Notes      string          `json:"notes,omitempty"`
	Status     ItemStatus      `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderTotals is the persisted copy of a pricing snapshot
type OrderTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	ServiceCharge  decimal.Decimal `json:"service_charge"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Order represents a customer order
type Order struct {
	ID             int64         `json:"id"`
	Number         string        `json:"order_number"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	Type           OrderType     `json:"order_type"`
	TableID        *int64        `json:"table_id,omitempty"`
	CustomerName   string        `json:"customer_name"`
	Status         OrderStatus   `json:"status"`
	PaymentMethod  PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	Totals         OrderTotals   `json:"totals"`
	Priority       int           `json:"priority"`
	Items          []OrderItem   `json:"items"`
	History        []StatusEntry `json:"history,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// HistorySubmitted is the status log entry written when an order is sent to the kitchen
const HistorySubmitted = "submitted"

// Submitted reports whether the order has been sent to the kitchen
func (o *Order) Submitted() bool {
	for _, h := range o.History {
		if h.Status == HistorySubmitted {
			return true
		}
	}
	return false
}

// StatusEntry represents an entry in the order status log
type StatusEntry struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// CreateOrderInput is the input of orders.create
type CreateOrderInput struct {
	IdempotencyKey string    `json:"idempotency_key"`
	OrderType      OrderType `json:"order_type"`
	TableID        *int64    `json:"table_id,omitempty"`
	CustomerName   string    `json:"customer_name"`
}

// AddOrderItemInput is the input of orders.addItem
type AddOrderItemInput struct {
	OrderID    int64           `json:"order_id"`
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Modifiers  []Modifier      `json:"modifiers,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// UpdateOrderInput is the input of orders.update
type UpdateOrderInput struct {
	OrderID       int64         `json:"order_id"`
	Totals        OrderTotals   `json:"totals"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// CancelOrderInput is the input of orders.cancel
type CancelOrderInput struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// GetOrderInput is the input of orders.get
type GetOrderInput struct {
	OrderID int64 `json:"order_id"`
}

// ListOrdersInput is the input of orders.list. Date is YYYY-MM-DD; empty means today.
type ListOrdersInput struct {
	Date   string      `json:"date,omitempty"`
	Status OrderStatus `json:"status,omitempty"`
}

// CalculatePriority calculates the kitchen priority based on the order total
func CalculatePriority(total decimal.Decimal) int {
	if total.GreaterThan(decimal.NewFromInt(100)) {
		return 10
	}
	if total.GreaterThanOrEqual(decimal.NewFromInt(50)) {
		return 5
	}
	return 1
}

// GenerateOrderNumber generates a unique order number in format ORD_YYYYMMDD_NNN
func GenerateOrderNumber(date time.Time, sequence int) string {
	dateStr := date.Format("20060102")
	return fmt.Sprintf("ORD_%s_%03d", dateStr, sequence)
}

// GetCookingTime returns the cooking time duration for different order types
func GetCookingTime(orderType OrderType) time.Duration {
	switch orderType {
	case DineIn:
		return 8 * time.Second
	case Takeout:
		return 10 * time.Second
	case Delivery:
		return 12 * time.Second
	default:
		return 10 * time.Second
	}
}

// LineTotal returns (unit price + modifiers) × quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	unit := i.UnitPrice
	for _, m := range i.Modifiers {
		unit = unit.Add(m.Price)
	}
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
