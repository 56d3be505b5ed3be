package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// EventPublisher announces order events to the kitchen and to staff
type EventPublisher interface {
	PublishKitchenTicket(ctx context.Context, ticket *models.KitchenTicket) error
	PublishStatus(ctx context.Context, msg *models.StatusUpdateMessage) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishKitchenTicket(context.Context, *models.KitchenTicket) error { return nil }

func (NopPublisher) PublishStatus(context.Context, *models.StatusUpdateMessage) error { return nil }

// Publisher publishes POS events to RabbitMQ
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishKitchenTicket routes a ticket to the kitchen queues by order type and priority
func (p *Publisher) PublishKitchenTicket(ctx context.Context, ticket *models.KitchenTicket) error {
	key := models.GenerateRoutingKey(ticket.OrderType, ticket.Priority)
	return p.publishMessage(ctx, OrdersExchange, key, ticket, ticketPriority(ticket.Priority), true)
}

// PublishStatus broadcasts a status update to every notification subscriber
func (p *Publisher) PublishStatus(ctx context.Context, msg *models.StatusUpdateMessage) error {
	return p.publishMessage(ctx, NotificationsExchange, "", msg, 0, false)
}

func ticketPriority(p int) uint8 {
	switch {
	case p <= 0:
		return 0
	case p > maxPriority:
		return maxPriority
	default:
		return uint8(p)
	}
}

func (p *Publisher) publishMessage(ctx context.Context, exchange, routingKey string, message interface{}, priority uint8, persistent bool) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(ctx); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	deliveryMode := amqp091.Transient
	if persistent {
		deliveryMode = amqp091.Persistent
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: deliveryMode,
		Priority:     priority,
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(ctx, exchange, routingKey, false, false, publishing)
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			"", err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		"", map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(body),
		})
	return nil
}

// Close closes the underlying connection
func (p *Publisher) Close() error {
	return p.conn.Close()
}

var (
	_ EventPublisher = (*Publisher)(nil)
	_ EventPublisher = NopPublisher{}
)
