package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// fakeAPI implements the procedures a test needs; the embedded interface
// panics on anything else.
type fakeAPI struct {
	API
	orders map[int64]*models.Order
	tables []models.Table
}

func (f *fakeAPI) CreateOrder(_ context.Context, in models.CreateOrderInput) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	o := &models.Order{
		ID:           int64(len(f.orders) + 1),
		Number:       fmt.Sprintf("ORD_20240101_%03d", len(f.orders)+1),
		Type:         in.OrderType,
		CustomerName: in.CustomerName,
		Status:       models.StatusOpen,
		Totals:       models.OrderTotals{Total: decimal.RequireFromString("23.00")},
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeAPI) GetOrder(_ context.Context, in models.GetOrderInput) (*models.Order, error) {
	o, ok := f.orders[in.OrderID]
	if !ok {
		return nil, models.NotFoundf("order %d", in.OrderID)
	}
	return o, nil
}

func (f *fakeAPI) ListTables(context.Context) ([]models.Table, error) {
	return f.tables, nil
}

func (f *fakeAPI) UpdateTable(_ context.Context, in models.UpdateTableInput) (*models.Table, error) {
	return nil, models.Conflictf("table %d was changed by another terminal", in.TableID)
}

func (f *fakeAPI) VerifyManagerPin(_ context.Context, in models.VerifyManagerPinInput) (*models.ManagerApproval, error) {
	switch in.PIN {
	case "0000":
		return nil, fmt.Errorf("try again in 4s: %w", models.ErrThrottled)
	case "1234":
		return &models.ManagerApproval{StaffID: 1, Name: "Maria", Role: models.RoleManager}, nil
	default:
		return nil, models.ErrInvalidPIN
	}
}

func (f *fakeAPI) ZReport(context.Context, models.ZReportInput) (*models.ZReport, error) {
	return nil, errors.New("connection reset by peer")
}

func newTestServer(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{
		orders: map[int64]*models.Order{},
		tables: []models.Table{{ID: 1, Name: "T1", Status: models.TableFree, Version: 3}},
	}
	srv := httptest.NewServer(NewServer(api, logger.Discard(), 0, nil).Routes())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client()), api
}

func TestClientRoundTrip(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	order, err := client.CreateOrder(ctx, models.CreateOrderInput{
		IdempotencyKey: "k1",
		OrderType:      models.Takeout,
		CustomerName:   "Sam",
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.Number != "ORD_20240101_001" || !order.Totals.Total.Equal(decimal.RequireFromString("23")) {
		t.Fatalf("order = %+v", order)
	}

	got, err := client.GetOrder(ctx, models.GetOrderInput{OrderID: order.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got.CustomerName != "Sam" {
		t.Errorf("customer = %q", got.CustomerName)
	}

	tables, err := client.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Version != 3 {
		t.Errorf("tables = %+v", tables)
	}
}

func TestClientErrorMapping(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		check func(error) bool
	}{
		{
			"validation",
			func() error {
				_, err := client.CreateOrder(ctx, models.CreateOrderInput{OrderType: models.Takeout})
				return err
			},
			func(err error) bool {
				var verr models.ValidationError
				return errors.As(err, &verr) && verr.Field == "customer_name" && verr.Message == "customer name is required"
			},
		},
		{
			"not found",
			func() error {
				_, err := client.GetOrder(ctx, models.GetOrderInput{OrderID: 42})
				return err
			},
			func(err error) bool { return errors.Is(err, models.ErrNotFound) },
		},
		{
			"conflict",
			func() error {
				_, err := client.UpdateTable(ctx, models.UpdateTableInput{TableID: 1, Status: models.TableOccupied})
				return err
			},
			func(err error) bool { return errors.Is(err, models.ErrConflict) },
		},
		{
			"unauthorized",
			func() error {
				_, err := client.VerifyManagerPin(ctx, models.VerifyManagerPinInput{PIN: "9999", TerminalID: "t"})
				return err
			},
			func(err error) bool { return errors.Is(err, models.ErrInvalidPIN) },
		},
		{
			"throttled",
			func() error {
				_, err := client.VerifyManagerPin(ctx, models.VerifyManagerPinInput{PIN: "0000", TerminalID: "t"})
				return err
			},
			func(err error) bool { return errors.Is(err, models.ErrThrottled) && strings.Contains(err.Error(), "4s") },
		},
		{
			"internal hides detail",
			func() error {
				_, err := client.ZReport(ctx, models.ZReportInput{})
				return err
			},
			func(err error) bool { return err != nil && err.Error() == "Internal server error" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !tt.check(err) {
				t.Errorf("unexpected error %v (%T)", err, err)
			}
		})
	}
}

func TestServerStatusCodes(t *testing.T) {
	api := &fakeAPI{orders: map[int64]*models.Order{}}
	handler := NewServer(api, logger.Discard(), 0, nil).Routes()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
		code   string
	}{
		{"unknown procedure", http.MethodPost, "/rpc/orders.explode", "{}", http.StatusNotFound, CodeNotFound},
		{"bad json", http.MethodPost, "/rpc/orders.create", "{", http.StatusBadRequest, CodeValidation},
		{"unknown field", http.MethodPost, "/rpc/orders.create", `{"bogus":1}`, http.StatusBadRequest, CodeValidation},
		{"validation", http.MethodPost, "/rpc/orders.create", `{"order_type":"takeout"}`, http.StatusBadRequest, CodeValidation},
		{"not found", http.MethodPost, "/rpc/orders.get", `{"order_id":9}`, http.StatusNotFound, CodeNotFound},
		{"conflict", http.MethodPost, "/rpc/tables.update", `{"table_id":1,"status":"occupied"}`, http.StatusConflict, CodeConflict},
		{"unauthorized", http.MethodPost, "/rpc/staff.verifyManagerPin", `{"pin":"1111","terminal_id":"a"}`, http.StatusUnauthorized, CodeUnauthorized},
		{"throttled", http.MethodPost, "/rpc/staff.verifyManagerPin", `{"pin":"0000","terminal_id":"a"}`, http.StatusTooManyRequests, CodeThrottled},
		{"internal", http.MethodPost, "/rpc/reports.zReport", `{}`, http.StatusInternalServerError, CodeInternal},
		{"wrong method", http.MethodGet, "/rpc/orders.get", "", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.code == "" {
				return
			}
			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatal(err)
			}
			if env.Error == nil || env.Error.Code != tt.code || env.Error.Message == "" {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	healthy := true
	handler := NewServer(&fakeAPI{}, logger.Discard(), 0, func(context.Context) bool { return healthy }).Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
