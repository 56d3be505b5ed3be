package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/testsuite"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/rpc"
	backend "restaurant-pos/internal/services/pos"
	"restaurant-pos/internal/services/checkout"
	"restaurant-pos/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// rejectingAPI refuses every split bill
type rejectingAPI struct {
	rpc.API
}

func (rejectingAPI) CreateSplitBill(context.Context, models.CreateSplitBillInput) (*models.SplitBill, error) {
	return nil, models.ValidationError{Field: "split_type", Message: "split bills are disabled"}
}

func newBackend(t *testing.T) (rpc.API, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	if err := store.SeedDemo(context.Background(), mem); err != nil {
		t.Fatalf("SeedDemo() error = %v", err)
	}
	return backend.NewService(mem, nil, logger.Discard(), domain.DefaultPolicy()), mem
}

func splitRequest(key string, tableID int64) models.CheckoutRequest {
	return models.CheckoutRequest{
		IdempotencyKey: key,
		OrderType:      models.DineIn,
		TableID:        &tableID,
		CustomerName:   "Ann",
		Items: []models.CheckoutLine{
			{MenuItemID: 1, Name: "Burger", Quantity: 2, UnitPrice: d("10.00")},
		},
		Totals: models.OrderTotals{
			Subtotal: d("20.00"), Tax: d("2.00"), ServiceCharge: d("1.00"),
			DiscountAmount: d("0"), TipAmount: d("2.00"), Total: d("25.00"),
		},
		PaymentMethod: models.PaymentSplit,
		PaymentStatus: models.PaymentPending,
		Tip:           &models.CheckoutTip{Type: models.TipFixed, Value: d("2.00"), Amount: d("2.00")},
		OccupyTable:   true,
		Split:         &models.CheckoutSplit{Type: models.SplitEqual, Parts: []decimal.Decimal{d("12.50"), d("12.50")}},
	}
}

func TestCheckoutWorkflowCommitsGraph(t *testing.T) {
	api, mem := newBackend(t)
	tables, _ := api.ListTables(context.Background())

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&Activities{API: api})

	env.ExecuteWorkflow(CheckoutWorkflow, CheckoutInput{Request: splitRequest("wf-1", tables[0].ID), Compensate: true})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error = %v", err)
	}

	var result models.CheckoutResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatal(err)
	}
	if result.Order == nil || len(result.Order.Items) != 1 || !result.Order.Totals.Total.Equal(d("25")) {
		t.Fatalf("order = %+v", result.Order)
	}
	if result.SplitBill == nil || len(result.SplitBill.Parts) != 2 {
		t.Errorf("split bill = %+v", result.SplitBill)
	}
	if tips := mem.Tips(result.Order.ID); len(tips) != 1 {
		t.Errorf("tips = %+v", tips)
	}
	after, _ := api.ListTables(context.Background())
	if after[0].Status != models.TableOccupied {
		t.Errorf("table = %s", after[0].Status)
	}
}

func TestCheckoutWorkflowCompensates(t *testing.T) {
	tests := []struct {
		name        string
		compensate  bool
		orderStatus models.OrderStatus
		tableStatus models.TableStatus
	}{
		{"compensation off", false, models.StatusOpen, models.TableOccupied},
		{"compensation on", true, models.StatusCancelled, models.TableFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, mem := newBackend(t)
			tables, _ := api.ListTables(context.Background())

			var suite testsuite.WorkflowTestSuite
			env := suite.NewTestWorkflowEnvironment()
			env.RegisterActivity(&Activities{API: rejectingAPI{API: api}})

			env.ExecuteWorkflow(CheckoutWorkflow, CheckoutInput{Request: splitRequest("wf-2", tables[1].ID), Compensate: tt.compensate})
			if !env.IsWorkflowCompleted() {
				t.Fatal("workflow did not complete")
			}

			err := StepErrorFrom(env.GetWorkflowError())
			var stepErr *checkout.StepError
			if !errors.As(err, &stepErr) {
				t.Fatalf("err = %v, want StepError", err)
			}
			if stepErr.Step != checkout.StepSplitBill || stepErr.Compensated != tt.compensate {
				t.Errorf("step %s compensated %v", stepErr.Step, stepErr.Compensated)
			}
			var verr models.ValidationError
			if !errors.As(err, &verr) || verr.Field != "split_type" || verr.Message != "split bills are disabled" {
				t.Errorf("cause = %v", stepErr.Err)
			}
			if checkout.UserMessage(err) != "split bills are disabled" {
				t.Errorf("toast = %q", checkout.UserMessage(err))
			}

			order, err := mem.OrderByIdempotencyKey(context.Background(), "wf-2")
			if err != nil {
				t.Fatal(err)
			}
			if order.Status != tt.orderStatus {
				t.Errorf("order = %s, want %s", order.Status, tt.orderStatus)
			}
			after, _ := api.ListTables(context.Background())
			if after[1].Status != tt.tableStatus {
				t.Errorf("table = %s, want %s", after[1].Status, tt.tableStatus)
			}
		})
	}
}

func TestStepErrorFromForeignError(t *testing.T) {
	cause := errors.New("cluster unreachable")
	err := StepErrorFrom(cause)
	var stepErr *checkout.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != checkout.StepCheckout || !errors.Is(err, cause) {
		t.Errorf("err = %v", err)
	}
}
