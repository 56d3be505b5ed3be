package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

type failingSink struct{}

func (failingSink) Send(context.Context, string) error { return errors.New("chat not found") }

func TestFormatNotification(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	eta := at.Add(10 * time.Second)

	tests := []struct {
		name string
		msg  models.StatusUpdateMessage
		want string
	}{
		{
			name: "cooking with estimate",
			msg:  models.StatusUpdateMessage{OrderNumber: "ORD_20260314_001", NewStatus: "cooking", ChangedBy: "grill", Timestamp: at, EstimatedCompletion: &eta},
			want: "🍳 [2026-03-14 12:30:00] Order ORD_20260314_001 is now being prepared by grill. Estimated completion: 12:30:10",
		},
		{
			name: "ready",
			msg:  models.StatusUpdateMessage{OrderNumber: "ORD_20260314_001", NewStatus: "ready", ChangedBy: "grill", Timestamp: at},
			want: "✅ [2026-03-14 12:30:00] Order ORD_20260314_001 is ready for pickup/delivery! Prepared by grill.",
		},
		{
			name: "paid",
			msg:  models.StatusUpdateMessage{OrderNumber: "ORD_20260314_002", OldStatus: "open", NewStatus: "paid", Timestamp: at},
			want: "💳 [2026-03-14 12:30:00] Order ORD_20260314_002 has been paid in full.",
		},
		{
			name: "cancelled with reason",
			msg:  models.StatusUpdateMessage{OrderNumber: "ORD_20260314_003", NewStatus: "cancelled", Timestamp: at, Note: "Checkout failed"},
			want: "❌ [2026-03-14 12:30:00] Order ORD_20260314_003 has been cancelled: Checkout failed",
		},
		{
			name: "unknown status",
			msg:  models.StatusUpdateMessage{OrderNumber: "ORD_20260314_004", OldStatus: "open", NewStatus: "held", ChangedBy: "pos-api", Timestamp: at},
			want: "📋 [2026-03-14 12:30:00] Order ORD_20260314_004 status changed from 'open' to 'held' by pos-api.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNotification(&tt.msg); got != tt.want {
				t.Errorf("FormatNotification() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleNotification(t *testing.T) {
	var out bytes.Buffer
	s := NewSubscriber(nil, logger.Discard(), failingSink{}, ConsoleSink{Out: &out})

	body, _ := json.Marshal(models.CreateStatusUpdateMessage("ORD_20260314_001", "cooking", "ready", "grill", nil))
	if err := s.handleNotification(context.Background(), body); err != nil {
		t.Fatalf("handleNotification() error = %v", err)
	}
	if !strings.Contains(out.String(), "ORD_20260314_001 is ready") {
		t.Errorf("console = %q", out.String())
	}

	if err := s.handleNotification(context.Background(), []byte("nope")); !errors.Is(err, messaging.ErrPoisonMessage) {
		t.Errorf("malformed body: err = %v, want ErrPoisonMessage", err)
	}
}
