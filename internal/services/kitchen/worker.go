// Package kitchen runs a kitchen station: it takes tickets from its queue,
// cooks the lines and reports every step back to the order history and the
// notification fanout.
package kitchen

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

// Worker represents a kitchen station
type Worker struct {
	name              string
	orderTypes        []models.OrderType
	heartbeatInterval time.Duration
	prefetch          int

	store     store.Store
	consumer  *messaging.Consumer
	publisher messaging.EventPublisher
	logger    *logger.Logger

	cookingTime func(models.OrderType) time.Duration

	// Graceful shutdown
	shutdown chan os.Signal
	done     chan bool
}

// NewWorker creates a new kitchen station worker
func NewWorker(name string, orderTypes []models.OrderType, heartbeatInterval time.Duration, prefetch int,
	s store.Store, consumer *messaging.Consumer, publisher messaging.EventPublisher, log *logger.Logger) *Worker {

	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Worker{
		name:              name,
		orderTypes:        orderTypes,
		heartbeatInterval: heartbeatInterval,
		prefetch:          prefetch,
		store:             s,
		consumer:          consumer,
		publisher:         publisher,
		logger:            log,
		cookingTime:       models.GetCookingTime,
		shutdown:          make(chan os.Signal, 1),
		done:              make(chan bool, 1),
	}
}

// Queue is the queue this station reads
func (w *Worker) Queue() string {
	return messaging.QueueForStation(w.orderTypes)
}

// Start registers the station and consumes tickets until a shutdown signal
// arrives, ctx is cancelled or the consumer gives up
func (w *Worker) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	if err := w.register(ctx, requestID); err != nil {
		return fmt.Errorf("failed to register station: %w", err)
	}

	signal.Notify(w.shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(w.shutdown)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go w.heartbeatLoop(ctx)

	go func() {
		if err := w.consumer.StartConsuming(ctx, w.handleMessage); err != nil && ctx.Err() == nil {
			w.logger.Error("consumer_failed", "Ticket consumer failed", requestID, err, nil)
		}
		w.done <- true
	}()

	w.logger.Info("worker_started", fmt.Sprintf("Kitchen station %s started", w.name), requestID, map[string]interface{}{
		"station_name":       w.name,
		"order_types":        w.orderTypes,
		"queue":              w.Queue(),
		"heartbeat_interval": w.heartbeatInterval.Seconds(),
		"prefetch":           w.prefetch,
	})

	select {
	case <-w.shutdown:
		w.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
	case <-ctx.Done():
		w.logger.Info("graceful_shutdown", "Context cancelled", requestID, nil)
	case <-w.done:
	}
	cancel()
	return w.gracefulShutdown(requestID)
}

// register marks the station online; a second station with the same name is refused
func (w *Worker) register(ctx context.Context, requestID string) error {
	station, err := w.store.RegisterStation(ctx, w.name)
	if err != nil {
		w.logger.Error("worker_registration_failed", "Station registration failed", requestID, err, map[string]interface{}{
			"station_name": w.name,
		})
		return err
	}

	w.logger.Info("worker_registered", fmt.Sprintf("Station %s registered successfully", w.name), requestID, map[string]interface{}{
		"station_id":   station.ID,
		"station_name": w.name,
	})
	return nil
}

// handleMessage processes one kitchen ticket
func (w *Worker) handleMessage(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var ticket models.KitchenTicket
	if err := messaging.Decode(body, &ticket); err != nil {
		w.logger.Error("message_parsing_failed", "Failed to parse kitchen ticket", requestID, err, nil)
		return err
	}

	w.logger.Debug("order_processing_started", fmt.Sprintf("Processing order %s", ticket.OrderNumber), requestID, map[string]interface{}{
		"order_number":  ticket.OrderNumber,
		"customer_name": ticket.CustomerName,
		"order_type":    ticket.OrderType,
		"items":         len(ticket.Items),
		"total":         ticket.Total.StringFixed(2),
	})

	// The type's own queue delivers the ticket to a specialized station.
	if !models.CanHandle(ticket.OrderType, w.orderTypes) {
		w.logger.Debug("order_rejected", fmt.Sprintf("Station %s does not cook %s orders", w.name, ticket.OrderType), requestID, map[string]interface{}{
			"order_number":            ticket.OrderNumber,
			"order_type":              ticket.OrderType,
			"station_specializations": w.orderTypes,
		})
		return nil
	}

	return w.processOrder(ctx, &ticket, requestID)
}

// processOrder moves the ticket's lines from queued through cooking to ready
func (w *Worker) processOrder(ctx context.Context, ticket *models.KitchenTicket, requestID string) error {
	claimed, err := w.claim(ctx, ticket)
	if err != nil {
		return fmt.Errorf("failed to start cooking order %s: %w", ticket.OrderNumber, err)
	}
	if !claimed {
		w.logger.Debug("order_skipped", fmt.Sprintf("Order %s has nothing left to cook", ticket.OrderNumber), requestID, map[string]interface{}{
			"order_number": ticket.OrderNumber,
		})
		return nil
	}

	cookingTime := w.cookingTime(ticket.OrderType)
	estimated := time.Now().UTC().Add(cookingTime)
	w.notify(ctx, models.CreateStatusUpdateMessage(ticket.OrderNumber, "submitted", string(models.ItemCooking), w.name, &estimated), requestID)

	w.logger.Debug("cooking_started", fmt.Sprintf("Cooking order %s for %v", ticket.OrderNumber, cookingTime), requestID, map[string]interface{}{
		"order_number":         ticket.OrderNumber,
		"cooking_time_seconds": cookingTime.Seconds(),
	})

	timer := time.NewTimer(cookingTime)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		w.release(ctx, ticket, requestID)
		return ctx.Err()
	}

	err = w.store.Atomic(ctx, func(tx store.Store) error {
		if err := tx.SetItemsStatus(ctx, ticket.OrderID, models.ItemReady); err != nil {
			return err
		}
		if err := tx.AppendStatus(ctx, ticket.OrderID, models.StatusEntry{
			Status:    string(models.ItemReady),
			ChangedBy: w.name,
			Notes:     "Order ready for pickup/delivery",
		}); err != nil {
			return err
		}
		return tx.IncrementStationTickets(ctx, w.name)
	})
	if err != nil {
		w.release(ctx, ticket, requestID)
		return fmt.Errorf("failed to mark order %s ready: %w", ticket.OrderNumber, err)
	}

	w.notify(ctx, models.CreateStatusUpdateMessage(ticket.OrderNumber, string(models.ItemCooking), string(models.ItemReady), w.name, nil), requestID)

	w.logger.Debug("order_completed", fmt.Sprintf("Successfully processed order %s", ticket.OrderNumber), requestID, map[string]interface{}{
		"order_number": ticket.OrderNumber,
		"processed_by": w.name,
	})
	return nil
}

// claim starts cooking if the order is live and still has queued lines.
// A redelivered or duplicate ticket finds nothing queued and is skipped.
func (w *Worker) claim(ctx context.Context, ticket *models.KitchenTicket) (bool, error) {
	claimed := false
	err := w.store.Atomic(ctx, func(tx store.Store) error {
		order, err := tx.GetOrder(ctx, ticket.OrderID)
		if err != nil {
			return err
		}
		if order.Status == models.StatusCancelled || !hasQueued(order.Items) {
			return nil
		}
		if err := tx.SetItemsStatus(ctx, order.ID, models.ItemCooking); err != nil {
			return err
		}
		claimed = true
		return tx.AppendStatus(ctx, order.ID, models.StatusEntry{
			Status:    string(models.ItemCooking),
			ChangedBy: w.name,
			Notes:     fmt.Sprintf("Order is being prepared by %s", w.name),
		})
	})
	return claimed, err
}

// release puts a claimed order back in the queue so the redelivered ticket
// can claim it again. It runs even after ctx is cancelled.
func (w *Worker) release(ctx context.Context, ticket *models.KitchenTicket, requestID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := w.store.Atomic(ctx, func(tx store.Store) error {
		if err := tx.SetItemsStatus(ctx, ticket.OrderID, models.ItemQueued); err != nil {
			return err
		}
		return tx.AppendStatus(ctx, ticket.OrderID, models.StatusEntry{
			Status:    string(models.ItemQueued),
			ChangedBy: w.name,
			Notes:     "Cooking interrupted",
		})
	})
	if err != nil {
		w.logger.Error("order_release_failed", fmt.Sprintf("Failed to return order %s to the queue", ticket.OrderNumber), requestID, err, map[string]interface{}{
			"order_number": ticket.OrderNumber,
		})
		return
	}
	w.logger.Warn("order_released", fmt.Sprintf("Order %s returned to the queue", ticket.OrderNumber), requestID, map[string]interface{}{
		"order_number": ticket.OrderNumber,
	})
}

func hasQueued(items []models.OrderItem) bool {
	for _, it := range items {
		if it.Status == models.ItemQueued {
			return true
		}
	}
	return false
}

// notify publishes a status update; a failed publish never fails the ticket
func (w *Worker) notify(ctx context.Context, msg *models.StatusUpdateMessage, requestID string) {
	if err := w.publisher.PublishStatus(ctx, msg); err != nil {
		w.logger.Error("notification_publish_failed", "Failed to publish status update", requestID, err, map[string]interface{}{
			"order_number": msg.OrderNumber,
			"new_status":   msg.NewStatus,
		})
	}
}

// heartbeatLoop keeps last_seen fresh while the station runs
func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.SetStationStatus(ctx, w.name, models.StationOnline); err != nil {
				w.logger.Error("heartbeat_failed", "Failed to send heartbeat", "", err, nil)
			} else {
				w.logger.Debug("heartbeat_sent", "Heartbeat sent successfully", "", nil)
			}
		}
	}
}

// gracefulShutdown marks the station offline and closes the consumer
func (w *Worker) gracefulShutdown(requestID string) error {
	w.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.SetStationStatus(ctx, w.name, models.StationOffline); err != nil {
		w.logger.Error("shutdown_failed", "Failed to mark station offline", requestID, err, nil)
	}

	if w.consumer != nil {
		if err := w.consumer.Close(); err != nil {
			w.logger.Error("shutdown_failed", "Failed to close consumer", requestID, err, nil)
		}
	}

	w.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
