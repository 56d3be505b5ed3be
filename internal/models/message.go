package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TicketItem is a line as the kitchen sees it
type TicketItem struct {
	ItemID    int64    `json:"item_id"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	Modifiers []string `json:"modifiers,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// KitchenTicket represents a message sent to kitchen stations
type KitchenTicket struct {
	OrderID      int64           `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CustomerName string          `json:"customer_name"`
	OrderType    OrderType       `json:"order_type"`
	TableID      *int64          `json:"table_id,omitempty"`
	Items        []TicketItem    `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Priority     int             `json:"priority"`
}

// StatusUpdateMessage represents a status update notification
type StatusUpdateMessage struct {
	OrderNumber         string     `json:"order_number"`
	OldStatus           string     `json:"old_status"`
	NewStatus           string     `json:"new_status"`
	ChangedBy           string     `json:"changed_by"`
	Timestamp           time.Time  `json:"timestamp"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	Note                string     `json:"note,omitempty"`
}

// NewKitchenTicket builds the kitchen ticket for a persisted order
func NewKitchenTicket(order *Order) *KitchenTicket {
	items := make([]TicketItem, 0, len(order.Items))
	for _, it := range order.Items {
		mods := make([]string, 0, len(it.Modifiers))
		for _, m := range it.Modifiers {
			mods = append(mods, m.Name)
		}
		items = append(items, TicketItem{
			ItemID:    it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Modifiers: mods,
			Notes:     it.Notes,
		})
	}
	return &KitchenTicket{
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		CustomerName: order.CustomerName,
		OrderType:    order.Type,
		TableID:      order.TableID,
		Items:        items,
		Total:        order.Totals.Total,
		Priority:     order.Priority,
	}
}

// CreateStatusUpdateMessage creates a StatusUpdateMessage for order status changes
func CreateStatusUpdateMessage(orderNumber, oldStatus, newStatus, changedBy string, estimatedCompletion *time.Time) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		OrderNumber:         orderNumber,
		OldStatus:           oldStatus,
		NewStatus:           newStatus,
		ChangedBy:           changedBy,
		Timestamp:           time.Now().UTC(),
		EstimatedCompletion: estimatedCompletion,
	}
}

// GenerateRoutingKey generates a routing key for kitchen tickets
func GenerateRoutingKey(orderType OrderType, priority int) string {
	return fmt.Sprintf("kitchen.%s.%d", orderType, priority)
}
