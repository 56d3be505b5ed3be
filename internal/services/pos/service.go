// Package pos is the backend of the POS terminals: it implements every
// remote procedure on top of the store and announces order events to the
// kitchen.
package pos

import (
	"context"
	"fmt"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/rpc"
	"restaurant-pos/internal/store"
)

const changedBy = "pos-api"

// Service implements rpc.API
type Service struct {
	store     store.Store
	publisher messaging.EventPublisher
	logger    *logger.Logger
	policy    domain.Policy
	now       func() time.Time
}

// NewService creates the backend service. A nil publisher drops events.
func NewService(s store.Store, publisher messaging.EventPublisher, log *logger.Logger, policy domain.Policy) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		store:     s,
		publisher: publisher,
		logger:    log,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Health reports whether the store is reachable
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// dayRange parses a YYYY-MM-DD business date; empty means today
func (s *Service) dayRange(date string) (time.Time, time.Time, error) {
	var day time.Time
	if date == "" {
		now := s.now()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, models.ValidationError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"}
		}
		day = parsed
	}
	return day, day.AddDate(0, 0, 1), nil
}

// announce publishes the kitchen ticket of a newly submitted order and its
// status change. Broker failures are logged, never returned: the order is
// already committed.
func (s *Service) announce(ctx context.Context, order *models.Order, oldStatus string, submitted bool) {
	requestID := rpc.RequestID(ctx)
	if submitted {
		if err := s.publisher.PublishKitchenTicket(ctx, models.NewKitchenTicket(order)); err != nil {
			s.logger.Error("kitchen_ticket_publish_failed", "Failed to publish kitchen ticket", requestID, err, map[string]interface{}{
				"order_number": order.Number,
			})
		}
	}
	if oldStatus == string(order.Status) && !submitted {
		return
	}
	newStatus := string(order.Status)
	if submitted && order.Status == models.StatusOpen {
		newStatus = models.HistorySubmitted
	}
	msg := models.CreateStatusUpdateMessage(order.Number, oldStatus, newStatus, changedBy, nil)
	if err := s.publisher.PublishStatus(ctx, msg); err != nil {
		s.logger.Error("notification_publish_failed", "Failed to publish status notification", requestID, err, map[string]interface{}{
			"order_number": order.Number,
		})
	}
}

func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

var _ rpc.API = (*Service)(nil)
