package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ZReport is the end-of-day financial summary
type ZReport struct {
	ID              int64                             `json:"id"`
	BusinessDate    string                            `json:"business_date"`
	OrdersCount     int                               `json:"orders_count"`
	CancelledCount  int                               `json:"cancelled_count"`
	Subtotal        decimal.Decimal                   `json:"subtotal"`
	Tax             decimal.Decimal                   `json:"tax"`
	ServiceCharge   decimal.Decimal                   `json:"service_charge"`
	Discounts       decimal.Decimal                   `json:"discounts"`
	Tips            decimal.Decimal                   `json:"tips"`
	Total           decimal.Decimal                   `json:"total"`
	ByPaymentMethod map[PaymentMethod]decimal.Decimal `json:"by_payment_method"`
	GeneratedAt     time.Time                         `json:"generated_at"`
}

// ZReportInput is the input of reports.zReport. Date is YYYY-MM-DD; empty means today.
type ZReportInput struct {
	Date string `json:"date,omitempty"`
}
