package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Client calls a remote Server. It implements API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the backend at baseURL. A nil httpClient
// uses one with a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Call invokes a procedure by name. in may be nil; out may be nil when the
// result is not needed.
func (c *Client) Call(ctx context.Context, name string, in, out interface{}) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s input: %w", name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+name, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", logger.GenerateRequestID())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", name, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode %s response (status %d): %w", name, resp.StatusCode, err)
	}
	if env.Error != nil {
		return toError(env.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", name, resp.StatusCode)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	return nil
}

func call[Out any](ctx context.Context, c *Client, name string, in interface{}) (Out, error) {
	var out Out
	err := c.Call(ctx, name, in, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, in models.CreateOrderInput) (*models.Order, error) {
	return call[*models.Order](ctx, c, OrdersCreate, in)
}

func (c *Client) AddOrderItem(ctx context.Context, in models.AddOrderItemInput) (*models.OrderItem, error) {
	return call[*models.OrderItem](ctx, c, OrdersAddItem, in)
}

func (c *Client) UpdateOrder(ctx context.Context, in models.UpdateOrderInput) (*models.Order, error) {
	return call[*models.Order](ctx, c, OrdersUpdate, in)
}

func (c *Client) CancelOrder(ctx context.Context, in models.CancelOrderInput) (*models.Order, error) {
	return call[*models.Order](ctx, c, OrdersCancel, in)
}

func (c *Client) GetOrder(ctx context.Context, in models.GetOrderInput) (*models.Order, error) {
	return call[*models.Order](ctx, c, OrdersGet, in)
}

func (c *Client) ListOrders(ctx context.Context, in models.ListOrdersInput) ([]models.Order, error) {
	return call[[]models.Order](ctx, c, OrdersList, in)
}

func (c *Client) Checkout(ctx context.Context, in models.CheckoutRequest) (*models.CheckoutResult, error) {
	return call[*models.CheckoutResult](ctx, c, OrdersCheckout, in)
}

func (c *Client) ListTables(ctx context.Context) ([]models.Table, error) {
	return call[[]models.Table](ctx, c, TablesList, nil)
}

func (c *Client) UpdateTable(ctx context.Context, in models.UpdateTableInput) (*models.Table, error) {
	return call[*models.Table](ctx, c, TablesUpdate, in)
}

func (c *Client) MergeTables(ctx context.Context, in models.MergeTablesInput) (*models.TableMergeGroup, error) {
	return call[*models.TableMergeGroup](ctx, c, TableMergesMerge, in)
}

func (c *Client) UnmergeTables(ctx context.Context, in models.UnmergeTablesInput) (*models.TableMergeGroup, error) {
	return call[*models.TableMergeGroup](ctx, c, TableMergesUnmerge, in)
}

func (c *Client) ActiveMerges(ctx context.Context) ([]models.TableMergeGroup, error) {
	return call[[]models.TableMergeGroup](ctx, c, TableMergesGetActive, nil)
}

func (c *Client) CreateSplitBill(ctx context.Context, in models.CreateSplitBillInput) (*models.SplitBill, error) {
	return call[*models.SplitBill](ctx, c, SplitBillsCreate, in)
}

func (c *Client) AddSplitPart(ctx context.Context, in models.AddSplitPartInput) (*models.SplitBill, error) {
	return call[*models.SplitBill](ctx, c, SplitBillsAddPart, in)
}

func (c *Client) PaySplitPart(ctx context.Context, in models.PaySplitPartInput) (*models.SplitBill, error) {
	return call[*models.SplitBill](ctx, c, SplitBillsPayPart, in)
}

func (c *Client) GetSplitBill(ctx context.Context, in models.GetSplitBillInput) (*models.SplitBill, error) {
	return call[*models.SplitBill](ctx, c, SplitBillsGet, in)
}

func (c *Client) ListDiscounts(ctx context.Context) ([]models.CatalogDiscount, error) {
	return call[[]models.CatalogDiscount](ctx, c, DiscountsList, nil)
}

func (c *Client) ApplyDiscount(ctx context.Context, in models.ApplyDiscountInput) (*models.DiscountApplication, error) {
	return call[*models.DiscountApplication](ctx, c, DiscountsApplyToOrder, in)
}

func (c *Client) AddTip(ctx context.Context, in models.AddTipInput) (*models.Tip, error) {
	return call[*models.Tip](ctx, c, TipsAddToOrder, in)
}

func (c *Client) VerifyManagerPin(ctx context.Context, in models.VerifyManagerPinInput) (*models.ManagerApproval, error) {
	return call[*models.ManagerApproval](ctx, c, StaffVerifyManagerPin, in)
}

func (c *Client) ZReport(ctx context.Context, in models.ZReportInput) (*models.ZReport, error) {
	return call[*models.ZReport](ctx, c, ReportsZReport, in)
}

func (c *Client) ListStations(ctx context.Context) ([]models.KitchenStation, error) {
	return call[[]models.KitchenStation](ctx, c, KitchenStations, nil)
}

var _ API = (*Client)(nil)
