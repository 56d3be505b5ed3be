package checkout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/rpc"
	backend "restaurant-pos/internal/services/pos"
	"restaurant-pos/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var errUnavailable = errors.New("backend unavailable")

// flakyAPI fails one kind of call and passes everything else through.
// The first passes calls of the failing kind still succeed.
type flakyAPI struct {
	rpc.API
	failStep string
	passes   int
	calls    int
}

func (f *flakyAPI) AddOrderItem(ctx context.Context, in models.AddOrderItemInput) (*models.OrderItem, error) {
	if f.failStep == StepAddItem {
		f.calls++
		if f.calls > f.passes {
			return nil, errUnavailable
		}
	}
	return f.API.AddOrderItem(ctx, in)
}

func (f *flakyAPI) CreateSplitBill(ctx context.Context, in models.CreateSplitBillInput) (*models.SplitBill, error) {
	if f.failStep == StepSplitBill {
		return nil, errUnavailable
	}
	return f.API.CreateSplitBill(ctx, in)
}

type env struct {
	api       rpc.API
	store     *store.MemoryStore
	managerID int64
	tables    []models.Table
}

func newEnv(t *testing.T) *env {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	mem := store.NewMemoryStore()
	if err := store.SeedDemo(ctx, mem, models.StaffMember{Name: "Maria", Role: models.RoleManager, PINHash: string(hash), Active: true}); err != nil {
		t.Fatalf("SeedDemo() error = %v", err)
	}
	svc := backend.NewService(mem, nil, logger.Discard(), domain.DefaultPolicy())
	approvers, _ := mem.ListApprovers(ctx)
	tables, _ := mem.ListTables(ctx)
	return &env{api: svc, store: mem, managerID: approvers[0].ID, tables: tables}
}

// untaxed drops tax and service charge so totals are easy to reason about
func untaxed() domain.Policy {
	p := domain.DefaultPolicy()
	p.Rates = domain.Rates{Tax: decimal.Zero, ServiceCharge: decimal.Zero}
	return p
}

func dispatch(t *testing.T, term *Terminal, cmds ...domain.Command) {
	t.Helper()
	for _, c := range cmds {
		if err := term.Dispatch(c); err != nil {
			t.Fatalf("Dispatch(%T) error = %v", c, err)
		}
	}
}

func burger(price string) domain.AddItem {
	return domain.AddItem{Item: domain.MenuItem{ID: 1, Name: "Burger", Price: d(price)}}
}

func TestBuildPlanScenarioOne(t *testing.T) {
	s := domain.NewSession(domain.DefaultPolicy())
	for _, cmd := range []domain.Command{
		burger("10.00"), burger("10.00"),
		domain.SetCustomer{Name: "Ann"},
		domain.SetPayment{Method: models.PaymentCash},
	} {
		var err error
		if s, err = s.Apply(cmd); err != nil {
			t.Fatal(err)
		}
	}

	req, err := BuildPlan(s)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	want := map[string]decimal.Decimal{
		"subtotal": d("20.00"), "tax": d("2.00"), "service": d("1.00"), "total": d("23.00"),
	}
	got := map[string]decimal.Decimal{
		"subtotal": req.Totals.Subtotal, "tax": req.Totals.Tax, "service": req.Totals.ServiceCharge, "total": req.Totals.Total,
	}
	for k, v := range want {
		if !got[k].Equal(v) {
			t.Errorf("%s = %s, want %s", k, got[k], v)
		}
	}
	if len(req.Items) != 1 || req.Items[0].Quantity != 2 {
		t.Errorf("items = %+v", req.Items)
	}
	if req.PaymentStatus != models.PaymentPaid || req.Discount != nil || req.Tip != nil || req.OccupyTable {
		t.Errorf("plan = %+v", req)
	}
	if req.IdempotencyKey != s.CheckoutKey {
		t.Errorf("idempotency key = %q, want session key", req.IdempotencyKey)
	}
}

func TestBuildPlanRejectsIncompleteSession(t *testing.T) {
	tests := []struct {
		name  string
		cmds  []domain.Command
		field string
	}{
		{"empty cart", []domain.Command{domain.SetCustomer{Name: "Ann"}, domain.SetPayment{Method: models.PaymentCash}}, "cart"},
		{"no customer", []domain.Command{burger("5"), domain.SetPayment{Method: models.PaymentCash}}, "customer_name"},
		{"dine in without table", []domain.Command{burger("5"), domain.SetCustomer{Name: "Ann"},
			domain.SetOrderType{Type: models.DineIn}, domain.SetPayment{Method: models.PaymentCash}}, "table_id"},
		{"no payment", []domain.Command{burger("5"), domain.SetCustomer{Name: "Ann"}}, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.NewSession(domain.DefaultPolicy())
			for _, c := range tt.cmds {
				s, _ = s.Apply(c)
			}
			_, err := BuildPlan(s)
			var v models.ValidationError
			if !errors.As(err, &v) || v.Field != tt.field {
				t.Fatalf("err = %v, want validation error on %s", err, tt.field)
			}
			if UserMessage(err) != v.Message {
				t.Errorf("toast = %q", UserMessage(err))
			}
		})
	}
}

func TestSagaAddItemFailure(t *testing.T) {
	tests := []struct {
		name       string
		compensate bool
		wantStatus models.OrderStatus
	}{
		{"partial order is left behind", false, models.StatusOpen},
		{"order is cancelled", true, models.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			api := &flakyAPI{API: e.api, failStep: StepAddItem}
			term := NewTerminal("term-1", api, NewSagaSubmitter(api, tt.compensate, time.Second, logger.Discard()), domain.DefaultPolicy(), logger.Discard())
			dispatch(t, term, burger("10.00"), domain.SetCustomer{Name: "Ann"}, domain.SetPayment{Method: models.PaymentCard})
			key := term.Session().CheckoutKey

			_, err := term.Charge(context.Background())
			var stepErr *StepError
			if !errors.As(err, &stepErr) || stepErr.Step != StepAddItem {
				t.Fatalf("err = %v, want StepError at %s", err, StepAddItem)
			}
			if !errors.Is(err, errUnavailable) {
				t.Errorf("cause lost: %v", err)
			}
			if stepErr.Compensated != tt.compensate {
				t.Errorf("Compensated = %v", stepErr.Compensated)
			}
			if got := UserMessage(err); got != "Failed to create order" {
				t.Errorf("toast = %q", got)
			}

			order, err := e.store.OrderByIdempotencyKey(context.Background(), key)
			if err != nil {
				t.Fatalf("order header missing: %v", err)
			}
			if order.Status != tt.wantStatus || len(order.Items) != 0 {
				t.Errorf("order = %s with %d items, want %s with none", order.Status, len(order.Items), tt.wantStatus)
			}

			if term.Session().Cart.IsEmpty() {
				t.Error("failed charge cleared the cart")
			}
			rotated := term.Session().CheckoutKey != key
			if rotated != tt.compensate {
				t.Errorf("checkout key rotated = %v", rotated)
			}
		})
	}
}

func TestSagaRetryCompletesPartialOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	api := &flakyAPI{API: e.api, failStep: StepAddItem, passes: 1}
	term := NewTerminal("term-1", api, NewSagaSubmitter(api, false, time.Second, logger.Discard()), untaxed(), logger.Discard())
	dispatch(t, term,
		burger("10.00"),
		domain.AddItem{Item: domain.MenuItem{ID: 2, Name: "Fries", Price: d("4.00")}},
		domain.SetCustomer{Name: "Ann"},
		domain.SetPayment{Method: models.PaymentCard},
	)
	key := term.Session().CheckoutKey

	if _, err := term.Charge(ctx); err == nil {
		t.Fatal("first charge succeeded")
	}
	partial, err := e.store.OrderByIdempotencyKey(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(partial.Items) != 1 || partial.Status != models.StatusOpen {
		t.Fatalf("partial order = %s with %d items", partial.Status, len(partial.Items))
	}
	if term.Session().CheckoutKey != key {
		t.Fatal("checkout key rotated without compensation")
	}

	api.failStep = ""
	result, err := term.Charge(ctx)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	o := result.Order
	if o.ID != partial.ID {
		t.Errorf("retry created order %d, want %d", o.ID, partial.ID)
	}
	if len(o.Items) != 2 || o.Items[0].Name != "Burger" || o.Items[1].Name != "Fries" {
		t.Errorf("items = %+v", o.Items)
	}
	if o.Status != models.StatusPaid || o.PaymentStatus != models.PaymentPaid || !o.Totals.Total.Equal(d("14.00")) {
		t.Errorf("order = %s/%s total %s", o.Status, o.PaymentStatus, o.Totals.Total)
	}
}

func TestRemaining(t *testing.T) {
	req := models.CheckoutRequest{Items: []models.CheckoutLine{
		{MenuItemID: 1, Name: "Burger", Quantity: 1, UnitPrice: d("10.00")},
		{MenuItemID: 2, Name: "Fries", Quantity: 1, UnitPrice: d("4.00")},
	}}
	burgerItem := models.OrderItem{MenuItemID: 1, Name: "Burger", Quantity: 1, UnitPrice: d("10.00")}
	friesItem := models.OrderItem{MenuItemID: 2, Name: "Fries", Quantity: 1, UnitPrice: d("4.00")}

	tests := []struct {
		name         string
		order        models.Order
		wantPending  int
		wantDone     bool
		wantConflict bool
	}{
		{"fresh order", models.Order{Status: models.StatusOpen}, 2, false, false},
		{"one line landed", models.Order{Status: models.StatusOpen, Items: []models.OrderItem{burgerItem}}, 1, false, false},
		{"every line landed but not sent", models.Order{Status: models.StatusOpen, Items: []models.OrderItem{burgerItem, friesItem}}, 0, false, false},
		{"paid", models.Order{Status: models.StatusPaid, Items: []models.OrderItem{burgerItem}}, 0, true, false},
		{"sent to the kitchen", models.Order{
			Status:  models.StatusOpen,
			Items:   []models.OrderItem{burgerItem, friesItem},
			History: []models.StatusEntry{{Status: models.HistorySubmitted}},
		}, 0, true, false},
		{"cancelled", models.Order{Status: models.StatusCancelled}, 0, false, true},
		{"different line", models.Order{Status: models.StatusOpen, Items: []models.OrderItem{friesItem}}, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending, done, err := Remaining(&tt.order, req)
			if got := errors.Is(err, models.ErrConflict); got != tt.wantConflict {
				t.Fatalf("err = %v, want conflict %v", err, tt.wantConflict)
			}
			if done != tt.wantDone || len(pending) != tt.wantPending {
				t.Errorf("Remaining() = %d pending, done %v; want %d, %v", len(pending), done, tt.wantPending, tt.wantDone)
			}
		})
	}
}

func TestSagaRestoresTableWhenSplitFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	table := e.tables[0]
	reserved, err := e.api.UpdateTable(ctx, models.UpdateTableInput{TableID: table.ID, Status: models.TableReserved})
	if err != nil {
		t.Fatal(err)
	}

	api := &flakyAPI{API: e.api, failStep: StepSplitBill}
	term := NewTerminal("term-1", api, NewSagaSubmitter(api, true, time.Second, logger.Discard()), untaxed(), logger.Discard())
	dispatch(t, term,
		burger("20.00"),
		domain.SetCustomer{Name: "Ann"},
		domain.SetOrderType{Type: models.DineIn},
		domain.SetTable{TableID: &table.ID},
		domain.SetSplit{Plan: &domain.SplitPlan{Type: models.SplitEqual, Parts: 2}},
	)
	key := term.Session().CheckoutKey

	_, err = term.Charge(ctx)
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepSplitBill || !stepErr.Compensated {
		t.Fatalf("err = %v", err)
	}

	tables, _ := e.api.ListTables(ctx)
	if tables[0].Status != models.TableReserved {
		t.Errorf("table = %s, want reserved", tables[0].Status)
	}
	if tables[0].Version <= reserved.Version {
		t.Errorf("table version = %d, not advanced past %d", tables[0].Version, reserved.Version)
	}
	order, _ := e.store.OrderByIdempotencyKey(ctx, key)
	if order.Status != models.StatusCancelled {
		t.Errorf("order = %s", order.Status)
	}
}

func TestSagaReplayDoesNotDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	saga := NewSagaSubmitter(e.api, true, time.Second, logger.Discard())

	s := domain.NewSession(domain.DefaultPolicy())
	for _, c := range []domain.Command{burger("8.00"), burger("8.00"), domain.SetCustomer{Name: "Ann"}, domain.SetPayment{Method: models.PaymentCash}} {
		s, _ = s.Apply(c)
	}
	req, err := BuildPlan(s)
	if err != nil {
		t.Fatal(err)
	}

	first, err := saga.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	second, err := saga.Submit(ctx, req)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if first.Order.ID != second.Order.ID || len(second.Order.Items) != 1 || second.Order.Items[0].Quantity != 2 {
		t.Errorf("replay = %+v", second.Order)
	}
	if second.Order.Status != models.StatusPaid {
		t.Errorf("status = %s", second.Order.Status)
	}
}

func TestTerminalSplitSettlesOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	term := NewTerminal("term-1", e.api, NewSagaSubmitter(e.api, true, time.Second, logger.Discard()), untaxed(), logger.Discard())
	dispatch(t, term,
		burger("25.00"), burger("25.00"),
		domain.SetCustomer{Name: "Ann"},
		domain.SetSplit{Plan: &domain.SplitPlan{Type: models.SplitEqual, Parts: 2}},
	)

	result, err := term.Charge(ctx)
	if err != nil {
		t.Fatalf("Charge() error = %v", err)
	}
	if !result.Order.Totals.Total.Equal(d("50")) {
		t.Fatalf("total = %s", result.Order.Totals.Total)
	}
	bill := term.SplitBill()
	if bill == nil || len(bill.Parts) != 2 || !bill.Parts[0].Amount.Equal(d("25")) || !bill.Parts[1].Amount.Equal(d("25")) {
		t.Fatalf("split bill = %+v", bill)
	}
	if !term.Session().Cart.IsEmpty() {
		t.Error("session not reset after charge")
	}

	if _, err := term.PaySplitPart(ctx, 1, models.PaymentCash); err != nil {
		t.Fatal(err)
	}
	if term.Settled() {
		t.Error("settled after one part")
	}
	if _, err := term.PaySplitPart(ctx, 2, models.PaymentCard); err != nil {
		t.Fatal(err)
	}
	if !term.Settled() {
		t.Error("not settled after both parts")
	}
	order, _ := e.api.GetOrder(ctx, models.GetOrderInput{OrderID: result.Order.ID})
	if order.Status != models.StatusPaid || order.PaymentStatus != models.PaymentPaid {
		t.Errorf("order = %s/%s", order.Status, order.PaymentStatus)
	}
}

func TestTerminalApproveDiscount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	catalog, _ := e.api.ListDiscounts(ctx)
	var loyalty models.CatalogDiscount
	for _, c := range catalog {
		if c.Name == "Loyalty 15%" {
			loyalty = c
		}
	}

	newTerm := func(id string) *Terminal {
		term := NewTerminal(id, e.api, NewAtomicSubmitter(e.api), domain.DefaultPolicy(), logger.Discard())
		dispatch(t, term,
			burger("50.00"), burger("50.00"),
			domain.SetCustomer{Name: "Ann"},
			domain.SetPayment{Method: models.PaymentCash},
			domain.SelectDiscount{Discount: loyalty},
		)
		if term.Session().Discount.State() != domain.PendingApproval {
			t.Fatalf("15%% discount state = %s, want pending", term.Session().Discount.State())
		}
		return term
	}

	short := newTerm("term-short")
	if err := short.ApproveDiscount(ctx, "12"); !models.IsValidation(err) {
		t.Errorf("short PIN: err = %v", err)
	}
	th, _ := e.store.GetPINThrottle(ctx, "term-short")
	if th.FailCount != 0 {
		t.Errorf("short PIN reached the backend: %+v", th)
	}

	wrong := newTerm("term-wrong")
	err := wrong.ApproveDiscount(ctx, "0000")
	if !errors.Is(err, models.ErrInvalidPIN) || UserMessage(err) != "Invalid manager PIN" {
		t.Errorf("wrong PIN: err = %v", err)
	}
	if wrong.Session().Discount.State() != domain.PendingApproval {
		t.Errorf("wrong PIN changed state to %s", wrong.Session().Discount.State())
	}

	term := newTerm("term-1")
	if err := term.ApproveDiscount(ctx, "4321"); err != nil {
		t.Fatalf("ApproveDiscount() error = %v", err)
	}
	if term.Session().Discount.State() != domain.Applied {
		t.Fatalf("state = %s", term.Session().Discount.State())
	}

	result, err := term.Charge(ctx)
	if err != nil {
		t.Fatalf("Charge() error = %v", err)
	}
	if !result.Order.Totals.DiscountAmount.Equal(d("15")) || !result.Order.Totals.Total.Equal(d("100")) {
		t.Errorf("totals = %+v", result.Order.Totals)
	}
	apps := e.store.DiscountApplications(result.Order.ID)
	if len(apps) != 1 || apps[0].ApprovedBy == nil || *apps[0].ApprovedBy != e.managerID {
		t.Errorf("discount applications = %+v", apps)
	}
}

func TestAtomicSubmitterFailureLeavesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	missing := int64(404)
	term := NewTerminal("term-1", e.api, NewAtomicSubmitter(e.api), domain.DefaultPolicy(), logger.Discard())
	dispatch(t, term,
		burger("9.00"),
		domain.SetCustomer{Name: "Ann"},
		domain.SetOrderType{Type: models.DineIn},
		domain.SetTable{TableID: &missing},
		domain.SetPayment{Method: models.PaymentCash},
	)

	_, err := term.Charge(ctx)
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepCheckout || !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if UserMessage(err) != "Failed to create order" {
		t.Errorf("toast = %q", UserMessage(err))
	}
	orders, _ := e.api.ListOrders(ctx, models.ListOrdersInput{})
	if len(orders) != 0 {
		t.Errorf("%d orders left behind", len(orders))
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", models.ValidationError{Field: "cart", Message: "cart is empty"}, "cart is empty"},
		{"wrapped validation", &StepError{Step: StepCheckout, Err: models.ValidationError{Field: "x", Message: "bad x"}}, "bad x"},
		{"pin", models.ErrInvalidPIN, "Invalid manager PIN"},
		{"throttled", models.ErrThrottled, "Too many PIN attempts, try again shortly"},
		{"remote", &StepError{Step: StepAddItem, Err: errUnavailable}, "Failed to create order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWatchTablesPollsUntilCancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var views []TableView
	err := WatchTables(ctx, e.api, 5*time.Millisecond, func(v TableView, err error) {
		if err != nil {
			t.Errorf("refresh error = %v", err)
		}
		views = append(views, v)
		if len(views) == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(views) != 3 {
		t.Fatalf("%d refreshes, want 3", len(views))
	}
	if len(views[0].Tables) != 6 || len(views[0].MergeCandidates) != 6 {
		t.Errorf("view = %d tables, %d candidates", len(views[0].Tables), len(views[0].MergeCandidates))
	}
}

func TestPlayTicket(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "ticket.yaml")
	ticket := `customer: Ann
order_type: dine_in
table: T3
items:
  - id: 1
    name: Burger
    price: "12.00"
    quantity: 2
    modifiers:
      - name: Cheese
        price: "1.00"
  - id: 2
    name: Soda
    price: "2.00"
discount:
  catalog: Happy hour 5%
tip:
  type: fixed
  value: "3.00"
split:
  type: by_item
  parts: 2
  assignment: [1, 2]
pay_parts: [card, cash]
`
	if err := os.WriteFile(path, []byte(ticket), 0o600); err != nil {
		t.Fatal(err)
	}
	tk, err := LoadTicket(path)
	if err != nil {
		t.Fatalf("LoadTicket() error = %v", err)
	}

	term := NewTerminal("term-1", e.api, NewSagaSubmitter(e.api, true, time.Second, logger.Discard()), domain.DefaultPolicy(), logger.Discard())
	result, err := Play(context.Background(), term, tk)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	// subtotal 28.00, tax 2.80, service 1.40, discount 1.40, tip 3.00
	if !result.Order.Totals.Total.Equal(d("33.80")) {
		t.Errorf("total = %s", result.Order.Totals.Total)
	}
	if result.Order.Status != models.StatusPaid || !result.SplitBill.Settled() {
		t.Errorf("order %s, bill %+v", result.Order.Status, result.SplitBill)
	}
	if !result.SplitBill.Total().Equal(d("33.80")) {
		t.Errorf("parts sum to %s", result.SplitBill.Total())
	}
	tables, _ := e.api.ListTables(context.Background())
	if tables[2].Status != models.TableOccupied {
		t.Errorf("T3 = %s", tables[2].Status)
	}
}
