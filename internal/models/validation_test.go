package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCreateOrderInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateOrderInput
		wantErr bool
	}{
		{
			name:    "valid takeout",
			in:      CreateOrderInput{CustomerName: "John Doe", OrderType: Takeout},
			wantErr: false,
		},
		{
			name:    "valid dine in",
			in:      CreateOrderInput{CustomerName: "John Doe", OrderType: DineIn, TableID: int64Ptr(4)},
			wantErr: false,
		},
		{
			name:    "missing customer name",
			in:      CreateOrderInput{OrderType: Takeout},
			wantErr: true,
		},
		{
			name:    "invalid order type",
			in:      CreateOrderInput{CustomerName: "John Doe", OrderType: "drive_through"},
			wantErr: true,
		},
		{
			name:    "dine in without table",
			in:      CreateOrderInput{CustomerName: "John Doe", OrderType: DineIn},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("Validate() error %v is not a ValidationError", err)
			}
		})
	}
}

func TestMergeTablesInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      MergeTablesInput
		wantErr bool
	}{
		{"valid", MergeTablesInput{PrimaryTableID: 1, SecondaryTableIDs: []int64{2, 3}}, false},
		{"no secondaries", MergeTablesInput{PrimaryTableID: 1}, true},
		{"primary among secondaries", MergeTablesInput{PrimaryTableID: 1, SecondaryTableIDs: []int64{1, 2}}, true},
		{"duplicate secondary", MergeTablesInput{PrimaryTableID: 1, SecondaryTableIDs: []int64{2, 2}}, true},
		{"missing primary", MergeTablesInput{SecondaryTableIDs: []int64{2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateTableInputRejectsMergedStatus(t *testing.T) {
	in := UpdateTableInput{TableID: 1, Status: TableMerged}
	var verr ValidationError
	if err := in.Validate(); !errors.As(err, &verr) || verr.Field != "status" {
		t.Fatalf("Validate() = %v, want status validation error", err)
	}
}

func TestCheckoutRequestValidate(t *testing.T) {
	valid := func() CheckoutRequest {
		return CheckoutRequest{
			IdempotencyKey: "key-1",
			OrderType:      Takeout,
			CustomerName:   "Ana",
			Items: []CheckoutLine{
				{MenuItemID: 1, Name: "Burger", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			},
			Totals: OrderTotals{
				Subtotal:      decimal.RequireFromString("20.00"),
				Tax:           decimal.RequireFromString("2.00"),
				ServiceCharge: decimal.RequireFromString("1.00"),
				Total:         decimal.RequireFromString("23.00"),
			},
			PaymentMethod: PaymentCard,
			PaymentStatus: PaymentPaid,
		}
	}

	tests := []struct {
		name   string
		mutate func(*CheckoutRequest)
		field  string
	}{
		{"valid", func(*CheckoutRequest) {}, ""},
		{"empty cart", func(r *CheckoutRequest) { r.Items = nil }, "items"},
		{"missing key", func(r *CheckoutRequest) { r.IdempotencyKey = "" }, "idempotency_key"},
		{"zero quantity", func(r *CheckoutRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"split without parts", func(r *CheckoutRequest) { r.PaymentMethod = PaymentSplit }, "split"},
		{
			"split parts not matching total",
			func(r *CheckoutRequest) {
				r.PaymentMethod = PaymentSplit
				r.Split = &CheckoutSplit{Type: SplitEqual, Parts: []decimal.Decimal{
					decimal.RequireFromString("11.50"), decimal.RequireFromString("11.49"),
				}}
			},
			"split.parts",
		},
		{
			"split parts matching total",
			func(r *CheckoutRequest) {
				r.PaymentMethod = PaymentSplit
				r.Split = &CheckoutSplit{Type: SplitEqual, Parts: []decimal.Decimal{
					decimal.RequireFromString("11.50"), decimal.RequireFromString("11.50"),
				}}
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestVerifyManagerPinInputValidate(t *testing.T) {
	if err := (&VerifyManagerPinInput{PIN: "123", TerminalID: "t1"}).Validate(4); err == nil {
		t.Error("3 digit PIN accepted")
	}
	if err := (&VerifyManagerPinInput{PIN: "1234", TerminalID: "t1"}).Validate(4); err != nil {
		t.Errorf("4 digit PIN rejected: %v", err)
	}
}
