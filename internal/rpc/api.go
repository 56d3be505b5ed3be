// Package rpc is the typed remote procedure surface between terminals and the
// POS backend. Every procedure is a JSON POST to /rpc/{procedure}.
package rpc

import (
	"context"

	"restaurant-pos/internal/models"
)

// Procedure names as they appear on the wire
const (
	OrdersCreate   = "orders.create"
	OrdersAddItem  = "orders.addItem"
	OrdersUpdate   = "orders.update"
	OrdersCancel   = "orders.cancel"
	OrdersGet      = "orders.get"
	OrdersList     = "orders.list"
	OrdersCheckout = "orders.checkout"

	TablesList   = "tables.list"
	TablesUpdate = "tables.update"

	TableMergesMerge     = "tableMerges.merge"
	TableMergesUnmerge   = "tableMerges.unmerge"
	TableMergesGetActive = "tableMerges.getActive"

	SplitBillsCreate  = "splitBills.create"
	SplitBillsAddPart = "splitBills.addPart"
	SplitBillsPayPart = "splitBills.payPart"
	SplitBillsGet     = "splitBills.get"

	DiscountsList         = "discountsManager.list"
	DiscountsApplyToOrder = "discountsManager.applyToOrder"

	TipsAddToOrder = "tips.addToOrder"

	StaffVerifyManagerPin = "staff.verifyManagerPin"

	ReportsZReport = "reports.zReport"

	KitchenStations = "kitchen.stations"
)

// API is implemented by the backend service and by Client
type API interface {
	CreateOrder(ctx context.Context, in models.CreateOrderInput) (*models.Order, error)
	AddOrderItem(ctx context.Context, in models.AddOrderItemInput) (*models.OrderItem, error)
	UpdateOrder(ctx context.Context, in models.UpdateOrderInput) (*models.Order, error)
	CancelOrder(ctx context.Context, in models.CancelOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, in models.GetOrderInput) (*models.Order, error)
	ListOrders(ctx context.Context, in models.ListOrdersInput) ([]models.Order, error)
	Checkout(ctx context.Context, in models.CheckoutRequest) (*models.CheckoutResult, error)

	ListTables(ctx context.Context) ([]models.Table, error)
	UpdateTable(ctx context.Context, in models.UpdateTableInput) (*models.Table, error)

	MergeTables(ctx context.Context, in models.MergeTablesInput) (*models.TableMergeGroup, error)
	UnmergeTables(ctx context.Context, in models.UnmergeTablesInput) (*models.TableMergeGroup, error)
	ActiveMerges(ctx context.Context) ([]models.TableMergeGroup, error)

	CreateSplitBill(ctx context.Context, in models.CreateSplitBillInput) (*models.SplitBill, error)
	AddSplitPart(ctx context.Context, in models.AddSplitPartInput) (*models.SplitBill, error)
	PaySplitPart(ctx context.Context, in models.PaySplitPartInput) (*models.SplitBill, error)
	GetSplitBill(ctx context.Context, in models.GetSplitBillInput) (*models.SplitBill, error)

	ListDiscounts(ctx context.Context) ([]models.CatalogDiscount, error)
	ApplyDiscount(ctx context.Context, in models.ApplyDiscountInput) (*models.DiscountApplication, error)

	AddTip(ctx context.Context, in models.AddTipInput) (*models.Tip, error)

	VerifyManagerPin(ctx context.Context, in models.VerifyManagerPinInput) (*models.ManagerApproval, error)

	ZReport(ctx context.Context, in models.ZReportInput) (*models.ZReport, error)

	ListStations(ctx context.Context) ([]models.KitchenStation, error)
}
