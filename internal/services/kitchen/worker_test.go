package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	backend "restaurant-pos/internal/services/pos"
	"restaurant-pos/internal/store"
)

type recorder struct {
	mu       sync.Mutex
	tickets  []*models.KitchenTicket
	statuses []*models.StatusUpdateMessage
}

func (r *recorder) PublishKitchenTicket(_ context.Context, t *models.KitchenTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, t)
	return nil
}

func (r *recorder) PublishStatus(_ context.Context, m *models.StatusUpdateMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, m)
	return nil
}

// submitted places a paid order and returns the ticket the backend published
func submitted(t *testing.T, mem *store.MemoryStore, orderType models.OrderType) []byte {
	t.Helper()
	ctx := context.Background()
	events := &recorder{}
	svc := backend.NewService(mem, events, logger.Discard(), domain.DefaultPolicy())

	o, err := svc.CreateOrder(ctx, models.CreateOrderInput{OrderType: orderType, CustomerName: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddOrderItem(ctx, models.AddOrderItemInput{
		OrderID: o.ID, MenuItemID: 1, Name: "Burger", Quantity: 2, UnitPrice: decimal.RequireFromString("10"),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateOrder(ctx, models.UpdateOrderInput{
		OrderID:       o.ID,
		Totals:        models.OrderTotals{Subtotal: decimal.NewFromInt(20), Total: decimal.NewFromInt(20)},
		PaymentMethod: models.PaymentCard,
		PaymentStatus: models.PaymentPaid,
	}); err != nil {
		t.Fatal(err)
	}
	if len(events.tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(events.tickets))
	}
	body, err := json.Marshal(events.tickets[0])
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func newTestWorker(t *testing.T, mem *store.MemoryStore, orderTypes ...models.OrderType) (*Worker, *recorder) {
	t.Helper()
	events := &recorder{}
	w := NewWorker("grill", orderTypes, time.Second, 1, mem, nil, events, logger.Discard())
	w.cookingTime = func(models.OrderType) time.Duration { return 0 }
	if err := w.register(context.Background(), "test"); err != nil {
		t.Fatalf("register() error = %v", err)
	}
	return w, events
}

func TestWorkerCooksTicket(t *testing.T) {
	mem := store.NewMemoryStore()
	body := submitted(t, mem, models.Takeout)
	w, events := newTestWorker(t, mem)

	if err := w.handleMessage(context.Background(), body); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}

	var ticket models.KitchenTicket
	_ = json.Unmarshal(body, &ticket)
	order, err := mem.GetOrder(context.Background(), ticket.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range order.Items {
		if it.Status != models.ItemReady {
			t.Errorf("item %s = %s, want ready", it.Name, it.Status)
		}
	}
	var trail []string
	for _, h := range order.History {
		if h.ChangedBy == "grill" {
			trail = append(trail, h.Status)
		}
	}
	if len(trail) != 2 || trail[0] != "cooking" || trail[1] != "ready" {
		t.Errorf("station history = %v", trail)
	}

	if len(events.statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(events.statuses))
	}
	if events.statuses[0].NewStatus != "cooking" || events.statuses[0].EstimatedCompletion == nil {
		t.Errorf("first update = %+v", events.statuses[0])
	}
	if events.statuses[1].OldStatus != "cooking" || events.statuses[1].NewStatus != "ready" {
		t.Errorf("second update = %+v", events.statuses[1])
	}

	station, _ := mem.Station("grill")
	if station.TicketsHandled != 1 {
		t.Errorf("tickets handled = %d, want 1", station.TicketsHandled)
	}
}

func TestWorkerSkipsDuplicateTicket(t *testing.T) {
	mem := store.NewMemoryStore()
	body := submitted(t, mem, models.Delivery)
	w, events := newTestWorker(t, mem)

	for i := 0; i < 2; i++ {
		if err := w.handleMessage(context.Background(), body); err != nil {
			t.Fatalf("delivery %d: error = %v", i+1, err)
		}
	}
	if len(events.statuses) != 2 {
		t.Errorf("statuses = %d, want 2", len(events.statuses))
	}
	station, _ := mem.Station("grill")
	if station.TicketsHandled != 1 {
		t.Errorf("tickets handled = %d, want 1", station.TicketsHandled)
	}
}

func TestWorkerHandleMessage(t *testing.T) {
	tests := []struct {
		name        string
		orderTypes  []models.OrderType
		body        func(t *testing.T, mem *store.MemoryStore) []byte
		wantPoison  bool
		wantUpdates int
	}{
		{
			name:       "malformed body is poison",
			body:       func(*testing.T, *store.MemoryStore) []byte { return []byte("{not json") },
			wantPoison: true,
		},
		{
			name:       "other order type is left for its station",
			orderTypes: []models.OrderType{models.DineIn, models.Takeout},
			body: func(t *testing.T, mem *store.MemoryStore) []byte {
				return submitted(t, mem, models.Delivery)
			},
		},
		{
			name:       "specialized station cooks its type",
			orderTypes: []models.OrderType{models.Delivery},
			body: func(t *testing.T, mem *store.MemoryStore) []byte {
				return submitted(t, mem, models.Delivery)
			},
			wantUpdates: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			body := tt.body(t, mem)
			w, events := newTestWorker(t, mem, tt.orderTypes...)

			err := w.handleMessage(context.Background(), body)
			if got := errors.Is(err, messaging.ErrPoisonMessage); got != tt.wantPoison {
				t.Fatalf("err = %v, poison = %v, want %v", err, got, tt.wantPoison)
			}
			if !tt.wantPoison && err != nil {
				t.Fatalf("err = %v", err)
			}
			if len(events.statuses) != tt.wantUpdates {
				t.Errorf("status updates = %d, want %d", len(events.statuses), tt.wantUpdates)
			}
		})
	}
}

func TestWorkerRequeuesInterruptedOrder(t *testing.T) {
	mem := store.NewMemoryStore()
	body := submitted(t, mem, models.Takeout)
	w, events := newTestWorker(t, mem)

	ctx, cancel := context.WithCancel(context.Background())
	w.cookingTime = func(models.OrderType) time.Duration {
		cancel()
		return time.Hour
	}
	if err := w.handleMessage(ctx, body); !errors.Is(err, context.Canceled) {
		t.Fatalf("interrupted handleMessage() error = %v, want context.Canceled", err)
	}

	var ticket models.KitchenTicket
	_ = json.Unmarshal(body, &ticket)
	order, err := mem.GetOrder(context.Background(), ticket.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range order.Items {
		if it.Status != models.ItemQueued {
			t.Errorf("item %s = %s after interruption, want queued", it.Name, it.Status)
		}
	}

	w.cookingTime = func(models.OrderType) time.Duration { return 0 }
	if err := w.handleMessage(context.Background(), body); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	order, _ = mem.GetOrder(context.Background(), ticket.OrderID)
	for _, it := range order.Items {
		if it.Status != models.ItemReady {
			t.Errorf("item %s = %s after redelivery, want ready", it.Name, it.Status)
		}
	}
	if last := events.statuses[len(events.statuses)-1]; last.NewStatus != "ready" {
		t.Errorf("last update = %+v", last)
	}
}

func TestWorkerSkipsCancelledOrder(t *testing.T) {
	mem := store.NewMemoryStore()
	body := submitted(t, mem, models.Takeout)
	var ticket models.KitchenTicket
	_ = json.Unmarshal(body, &ticket)

	svc := backend.NewService(mem, nil, logger.Discard(), domain.DefaultPolicy())
	if _, err := svc.CancelOrder(context.Background(), models.CancelOrderInput{OrderID: ticket.OrderID, Reason: "customer left"}); err != nil {
		t.Fatal(err)
	}

	w, events := newTestWorker(t, mem)
	if err := w.handleMessage(context.Background(), body); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if len(events.statuses) != 0 {
		t.Errorf("cancelled order was cooked: %+v", events.statuses)
	}
}

func TestWorkerRegistration(t *testing.T) {
	mem := store.NewMemoryStore()
	w, _ := newTestWorker(t, mem)

	twin := NewWorker("grill", nil, time.Second, 1, mem, nil, nil, logger.Discard())
	if err := twin.register(context.Background(), "test"); !errors.Is(err, models.ErrConflict) {
		t.Errorf("second registration: err = %v, want ErrConflict", err)
	}

	if err := w.gracefulShutdown("test"); err != nil {
		t.Fatal(err)
	}
	station, _ := mem.Station("grill")
	if station.Status != models.StationOffline {
		t.Errorf("status after shutdown = %s", station.Status)
	}
	if err := twin.register(context.Background(), "test"); err != nil {
		t.Errorf("re-registration after shutdown: err = %v", err)
	}
}

func TestWorkerQueue(t *testing.T) {
	tests := []struct {
		orderTypes []models.OrderType
		want       string
	}{
		{nil, messaging.GeneralKitchenQueue},
		{[]models.OrderType{models.Delivery}, "kitchen_delivery_queue"},
		{[]models.OrderType{models.DineIn, models.Takeout}, messaging.GeneralKitchenQueue},
	}
	for _, tt := range tests {
		w := NewWorker("grill", tt.orderTypes, time.Second, 1, store.NewMemoryStore(), nil, nil, logger.Discard())
		if got := w.Queue(); got != tt.want {
			t.Errorf("Queue(%v) = %s, want %s", tt.orderTypes, got, tt.want)
		}
	}
}
