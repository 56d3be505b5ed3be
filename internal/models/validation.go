package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	maxCustomerNameLength = 100
	maxItemNameLength     = 50
	maxItemQuantity       = 99
)

var maxItemPrice = decimal.RequireFromString("9999.99")

func validateCustomerName(name string) error {
	if name == "" {
		return ValidationError{Field: "customer_name", Message: "customer name is required"}
	}
	if len(name) > maxCustomerNameLength {
		return ValidationError{Field: "customer_name", Message: "customer name must be less than 100 characters"}
	}
	return nil
}

func validateOrderType(orderType OrderType) error {
	switch orderType {
	case DineIn, Takeout, Delivery:
		return nil
	case "":
		return ValidationError{Field: "order_type", Message: "order type is required"}
	default:
		return ValidationError{Field: "order_type", Message: "invalid order type"}
	}
}

func validateOrderTypeConditions(orderType OrderType, tableID *int64) error {
	if orderType == DineIn && (tableID == nil || *tableID <= 0) {
		return ValidationError{Field: "table_id", Message: "table is required for dine-in orders"}
	}
	return nil
}

func validatePaymentMethod(field string, method PaymentMethod, allowSplit bool) error {
	switch method {
	case PaymentCash, PaymentCard:
		return nil
	case PaymentSplit:
		if allowSplit {
			return nil
		}
	}
	return ValidationError{Field: field, Message: fmt.Sprintf("invalid payment method %q", method)}
}

func validateLine(field, name string, quantity int, unitPrice decimal.Decimal, modifiers []Modifier) error {
	if name == "" {
		return ValidationError{Field: field + ".name", Message: "item name is required"}
	}
	if len(name) > maxItemNameLength {
		return ValidationError{Field: field + ".name", Message: "item name must be less than 50 characters"}
	}
	if quantity < 1 {
		return ValidationError{Field: field + ".quantity", Message: "item quantity must be at least 1"}
	}
	if quantity > maxItemQuantity {
		return ValidationError{Field: field + ".quantity", Message: "item quantity must be less than or equal to 99"}
	}
	if unitPrice.IsNegative() {
		return ValidationError{Field: field + ".unit_price", Message: "item price must not be negative"}
	}
	if unitPrice.GreaterThan(maxItemPrice) {
		return ValidationError{Field: field + ".unit_price", Message: "item price must be less than or equal to 9999.99"}
	}
	for j, m := range modifiers {
		if m.Name == "" {
			return ValidationError{Field: fmt.Sprintf("%s.modifiers[%d].name", field, j), Message: "modifier name is required"}
		}
		if m.Price.IsNegative() {
			return ValidationError{Field: fmt.Sprintf("%s.modifiers[%d].price", field, j), Message: "modifier price must not be negative"}
		}
	}
	return nil
}

// Validate checks an orders.create input
func (in *CreateOrderInput) Validate() error {
	if err := validateCustomerName(in.CustomerName); err != nil {
		return err
	}
	if err := validateOrderType(in.OrderType); err != nil {
		return err
	}
	return validateOrderTypeConditions(in.OrderType, in.TableID)
}

// Validate checks an orders.addItem input
func (in *AddOrderItemInput) Validate() error {
	if in.OrderID <= 0 {
		return ValidationError{Field: "order_id", Message: "order id is required"}
	}
	return validateLine("item", in.Name, in.Quantity, in.UnitPrice, in.Modifiers)
}

// Validate checks an orders.update input
func (in *UpdateOrderInput) Validate() error {
	if in.OrderID <= 0 {
		return ValidationError{Field: "order_id", Message: "order id is required"}
	}
	if err := validatePaymentMethod("payment_method", in.PaymentMethod, true); err != nil {
		return err
	}
	switch in.PaymentStatus {
	case PaymentPending, PaymentPartial, PaymentPaid:
	default:
		return ValidationError{Field: "payment_status", Message: "invalid payment status"}
	}
	return validateTotals(in.Totals)
}

func validateTotals(t OrderTotals) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"totals.subtotal", t.Subtotal},
		{"totals.tax", t.Tax},
		{"totals.service_charge", t.ServiceCharge},
		{"totals.discount_amount", t.DiscountAmount},
		{"totals.tip_amount", t.TipAmount},
		{"totals.total", t.Total},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return ValidationError{Field: f.name, Message: "amount must not be negative"}
		}
	}
	return nil
}

// Validate checks a tables.update input
func (in *UpdateTableInput) Validate() error {
	if in.TableID <= 0 {
		return ValidationError{Field: "table_id", Message: "table id is required"}
	}
	switch in.Status {
	case TableFree, TableOccupied, TableReserved:
	case TableMerged:
		return ValidationError{Field: "status", Message: "tables are merged through tableMerges.merge"}
	default:
		return ValidationError{Field: "status", Message: "invalid table status"}
	}
	if in.ExpectedVersion < 0 {
		return ValidationError{Field: "expected_version", Message: "expected version must not be negative"}
	}
	return nil
}

// Validate checks the shape of a tableMerges.merge input. Table state is
// checked against the store separately.
func (in *MergeTablesInput) Validate() error {
	if in.PrimaryTableID <= 0 {
		return ValidationError{Field: "primary_table_id", Message: "primary table is required"}
	}
	if len(in.SecondaryTableIDs) == 0 {
		return ValidationError{Field: "secondary_table_ids", Message: "select at least one table to merge"}
	}
	seen := make(map[int64]bool, len(in.SecondaryTableIDs))
	for _, id := range in.SecondaryTableIDs {
		if id == in.PrimaryTableID {
			return ValidationError{Field: "secondary_table_ids", Message: "primary table cannot also be a secondary table"}
		}
		if seen[id] {
			return ValidationError{Field: "secondary_table_ids", Message: fmt.Sprintf("table %d selected twice", id)}
		}
		seen[id] = true
	}
	return nil
}

// Validate checks a splitBills.create input
func (in *CreateSplitBillInput) Validate() error {
	if in.OrderID <= 0 {
		return ValidationError{Field: "order_id", Message: "order id is required"}
	}
	return validateSplitType(in.Type)
}

func validateSplitType(t SplitType) error {
	switch t {
	case SplitEqual, SplitByItem, SplitByPercentage:
		return nil
	default:
		return ValidationError{Field: "split_type", Message: "invalid split type"}
	}
}

// Validate checks a splitBills.addPart input
func (in *AddSplitPartInput) Validate() error {
	if in.SplitBillID <= 0 {
		return ValidationError{Field: "split_bill_id", Message: "split bill id is required"}
	}
	if in.PartNumber < 1 {
		return ValidationError{Field: "part_number", Message: "part number must be at least 1"}
	}
	if in.Amount.IsNegative() {
		return ValidationError{Field: "amount", Message: "part amount must not be negative"}
	}
	if in.Method != "" {
		return validatePaymentMethod("method", in.Method, false)
	}
	return nil
}

// Validate checks a splitBills.payPart input
func (in *PaySplitPartInput) Validate() error {
	if in.SplitBillID <= 0 {
		return ValidationError{Field: "split_bill_id", Message: "split bill id is required"}
	}
	if in.PartNumber < 1 {
		return ValidationError{Field: "part_number", Message: "part number must be at least 1"}
	}
	return validatePaymentMethod("method", in.Method, false)
}

func validateDiscountKind(kind DiscountKind) error {
	switch kind {
	case DiscountPercentage, DiscountFixed, DiscountManual:
		return nil
	default:
		return ValidationError{Field: "kind", Message: fmt.Sprintf("unknown discount kind %q", kind)}
	}
}

// Validate checks a discountsManager.applyToOrder input
func (in *ApplyDiscountInput) Validate() error {
	if in.OrderID <= 0 {
		return ValidationError{Field: "order_id", Message: "order id is required"}
	}
	if in.Name == "" {
		return ValidationError{Field: "name", Message: "discount name is required"}
	}
	if err := validateDiscountKind(in.Kind); err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "discount amount must be greater than 0"}
	}
	return nil
}

// Validate checks a tips.addToOrder input
func (in *AddTipInput) Validate() error {
	if in.OrderID <= 0 {
		return ValidationError{Field: "order_id", Message: "order id is required"}
	}
	switch in.Type {
	case TipPercent, TipFixed:
	default:
		return ValidationError{Field: "tip_type", Message: "invalid tip type"}
	}
	if in.Value.IsNegative() || !in.Amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "tip amount must be greater than 0"}
	}
	return nil
}

// Validate checks a staff.verifyManagerPin input
func (in *VerifyManagerPinInput) Validate(minLength int) error {
	if in.TerminalID == "" {
		return ValidationError{Field: "terminal_id", Message: "terminal id is required"}
	}
	if len(in.PIN) < minLength {
		return ValidationError{Field: "pin", Message: fmt.Sprintf("PIN must be at least %d digits", minLength)}
	}
	return nil
}

// Validate checks an orders.checkout request
func (in *CheckoutRequest) Validate() error {
	if in.IdempotencyKey == "" {
		return ValidationError{Field: "idempotency_key", Message: "idempotency key is required"}
	}
	if err := validateCustomerName(in.CustomerName); err != nil {
		return err
	}
	if err := validateOrderType(in.OrderType); err != nil {
		return err
	}
	if err := validateOrderTypeConditions(in.OrderType, in.TableID); err != nil {
		return err
	}
	if len(in.Items) == 0 {
		return ValidationError{Field: "items", Message: "cart is empty"}
	}
	for i, it := range in.Items {
		if err := validateLine(fmt.Sprintf("items[%d]", i), it.Name, it.Quantity, it.UnitPrice, it.Modifiers); err != nil {
			return err
		}
	}
	if err := validatePaymentMethod("payment_method", in.PaymentMethod, true); err != nil {
		return err
	}
	if err := validateTotals(in.Totals); err != nil {
		return err
	}
	if in.Discount != nil {
		if err := validateDiscountKind(in.Discount.Kind); err != nil {
			return err
		}
	}
	if in.PaymentMethod == PaymentSplit {
		if in.Split == nil || len(in.Split.Parts) < 2 {
			return ValidationError{Field: "split", Message: "split payment needs at least 2 parts"}
		}
		if err := validateSplitType(in.Split.Type); err != nil {
			return err
		}
		sum := decimal.Zero
		for _, p := range in.Split.Parts {
			sum = sum.Add(p)
		}
		if !sum.Equal(in.Totals.Total) {
			return ValidationError{Field: "split.parts", Message: fmt.Sprintf("parts sum to %s, order total is %s", sum.StringFixed(2), in.Totals.Total.StringFixed(2))}
		}
	}
	return nil
}
