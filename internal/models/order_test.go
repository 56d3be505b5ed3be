package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCalculatePriority(t *testing.T) {
	tests := []struct {
		total string
		want  int
	}{
		{"150.00", 10},
		{"100.01", 10},
		{"100.00", 5},
		{"50.00", 5},
		{"49.99", 1},
		{"0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			if got := CalculatePriority(decimal.RequireFromString(tt.total)); got != tt.want {
				t.Errorf("CalculatePriority(%s) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	date := time.Date(2024, 12, 16, 10, 0, 0, 0, time.UTC)
	if got := GenerateOrderNumber(date, 7); got != "ORD_20241216_007" {
		t.Errorf("GenerateOrderNumber() = %s", got)
	}
}

func TestLineTotalIncludesModifiers(t *testing.T) {
	item := OrderItem{
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("8.50"),
		Modifiers: []Modifier{
			{Name: "extra cheese", Price: decimal.RequireFromString("1.25")},
			{Name: "bacon", Price: decimal.RequireFromString("2.00")},
		},
	}
	if got := item.LineTotal(); !got.Equal(decimal.RequireFromString("35.25")) {
		t.Errorf("LineTotal() = %s, want 35.25", got)
	}
}

func TestSplitBillSettled(t *testing.T) {
	bill := SplitBill{Parts: []SplitPart{
		{PartNumber: 1, Amount: decimal.RequireFromString("25.00"), Paid: true},
		{PartNumber: 2, Amount: decimal.RequireFromString("25.00")},
	}}
	if bill.Settled() {
		t.Fatal("bill settled with an unpaid part")
	}
	bill.Parts[1].Paid = true
	if !bill.Settled() {
		t.Fatal("bill not settled after every part paid")
	}
	if !bill.Total().Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("Total() = %s", bill.Total())
	}
	if (SplitBill{}).Settled() {
		t.Error("empty bill reported settled")
	}
}

func TestMergeGroupContains(t *testing.T) {
	g := TableMergeGroup{PrimaryTableID: 1, MergedTableIDs: []int64{2, 3}}
	for _, id := range []int64{1, 2, 3} {
		if !g.Contains(id) {
			t.Errorf("Contains(%d) = false", id)
		}
	}
	if g.Contains(4) {
		t.Error("Contains(4) = true")
	}
}

func TestParseOrderTypes(t *testing.T) {
	got := ParseOrderTypes("dine_in, delivery,bogus")
	if len(got) != 2 || got[0] != DineIn || got[1] != Delivery {
		t.Errorf("ParseOrderTypes() = %v", got)
	}
	if !CanHandle(Takeout, nil) {
		t.Error("station without specializations should take every order type")
	}
	if CanHandle(Takeout, got) {
		t.Error("dine_in/delivery station accepted takeout")
	}
}
