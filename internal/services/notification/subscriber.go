// Package notification turns order status updates into messages for the
// floor staff: the console always, and a Telegram chat when configured.
package notification

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

// Sink delivers one formatted notification
type Sink interface {
	Send(ctx context.Context, text string) error
}

// ConsoleSink writes notifications one per line
type ConsoleSink struct {
	Out io.Writer
}

func (c ConsoleSink) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintln(c.Out, text)
	return err
}

// TelegramSink posts notifications to a staff chat
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink authenticates the bot token
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (t *TelegramSink) Send(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Subscriber handles status update messages
type Subscriber struct {
	consumer *messaging.Consumer
	sinks    []Sink
	logger   *logger.Logger

	// Graceful shutdown
	shutdown chan os.Signal
	done     chan bool
}

// NewSubscriber creates a new notification subscriber. Without sinks it
// prints to stdout.
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger, sinks ...Sink) *Subscriber {
	if len(sinks) == 0 {
		sinks = []Sink{ConsoleSink{Out: os.Stdout}}
	}
	return &Subscriber{
		consumer: consumer,
		sinks:    sinks,
		logger:   log,
		shutdown: make(chan os.Signal, 1),
		done:     make(chan bool, 1),
	}
}

// Start consumes notifications until a shutdown signal arrives or ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.shutdown)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("service_started", "Notification subscriber started", requestID, map[string]interface{}{
		"sinks": len(s.sinks),
	})

	go func() {
		if err := s.consumer.StartConsuming(ctx, s.handleNotification); err != nil && ctx.Err() == nil {
			s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
		}
		s.done <- true
	}()

	select {
	case <-s.shutdown:
		s.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
	case <-ctx.Done():
	case <-s.done:
	}
	cancel()
	return s.gracefulShutdown(requestID)
}

// handleNotification processes one status update. Sink failures are
// logged; the update is never redelivered because of them.
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var statusUpdate models.StatusUpdateMessage
	if err := messaging.Decode(body, &statusUpdate); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return err
	}

	s.logger.Debug("notification_received", "Received status update notification", requestID, map[string]interface{}{
		"order_number": statusUpdate.OrderNumber,
		"new_status":   statusUpdate.NewStatus,
		"changed_by":   statusUpdate.ChangedBy,
	})

	text := FormatNotification(&statusUpdate)
	for _, sink := range s.sinks {
		if err := sink.Send(ctx, text); err != nil {
			s.logger.Error("notification_send_failed", "Failed to deliver notification", requestID, err, map[string]interface{}{
				"order_number": statusUpdate.OrderNumber,
				"sink":         fmt.Sprintf("%T", sink),
			})
		}
	}

	s.logger.Info("notification_displayed", "Notification delivered", requestID, map[string]interface{}{
		"order_number": statusUpdate.OrderNumber,
		"old_status":   statusUpdate.OldStatus,
		"new_status":   statusUpdate.NewStatus,
		"changed_by":   statusUpdate.ChangedBy,
		"timestamp":    statusUpdate.Timestamp.Format("2006-01-02 15:04:05"),
	})
	return nil
}

// FormatNotification renders a status update as one human-readable line
func FormatNotification(u *models.StatusUpdateMessage) string {
	timestamp := u.Timestamp.Format("2006-01-02 15:04:05")

	switch u.NewStatus {
	case "submitted":
		return fmt.Sprintf("🧾 [%s] Order %s was sent to the kitchen by %s.", timestamp, u.OrderNumber, u.ChangedBy)
	case "cooking":
		if u.EstimatedCompletion != nil {
			return fmt.Sprintf("🍳 [%s] Order %s is now being prepared by %s. Estimated completion: %s",
				timestamp, u.OrderNumber, u.ChangedBy, u.EstimatedCompletion.Format("15:04:05"))
		}
		return fmt.Sprintf("🍳 [%s] Order %s is now being prepared by %s.", timestamp, u.OrderNumber, u.ChangedBy)
	case "ready":
		return fmt.Sprintf("✅ [%s] Order %s is ready for pickup/delivery! Prepared by %s.", timestamp, u.OrderNumber, u.ChangedBy)
	case "paid":
		return fmt.Sprintf("💳 [%s] Order %s has been paid in full.", timestamp, u.OrderNumber)
	case "cancelled":
		if u.Note != "" {
			return fmt.Sprintf("❌ [%s] Order %s has been cancelled: %s", timestamp, u.OrderNumber, u.Note)
		}
		return fmt.Sprintf("❌ [%s] Order %s has been cancelled.", timestamp, u.OrderNumber)
	default:
		return fmt.Sprintf("📋 [%s] Order %s status changed from '%s' to '%s' by %s.",
			timestamp, u.OrderNumber, u.OldStatus, u.NewStatus, u.ChangedBy)
	}
}

// gracefulShutdown closes the consumer
func (s *Subscriber) gracefulShutdown(requestID string) error {
	s.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			s.logger.Error("shutdown_failed", "Failed to close consumer", requestID, err, nil)
		}
	}

	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
