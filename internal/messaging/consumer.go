package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
)

// ErrPoisonMessage marks a delivery that can never be processed. It is
// dead-lettered instead of requeued.
var ErrPoisonMessage = errors.New("poison message")

// MessageHandler processes one delivery body
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer handles message consumption from RabbitMQ
type Consumer struct {
	conn           *Connection
	logger         *logger.Logger
	queueName      string
	consumerTag    string
	prefetch       int
	processTimeout time.Duration
}

// NewConsumer creates a new message consumer
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:           conn,
		logger:         log,
		queueName:      queueName,
		consumerTag:    consumerTag,
		prefetch:       prefetch,
		processTimeout: time.Minute,
	}
}

// Decode unmarshals a JSON body; malformed bodies are poison
func Decode(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	return nil
}

// settlement decides what happens to a delivery after the handler ran
type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleDeadLetter
)

// settle requeues a failed delivery once; a second failure or a poison
// message goes to the dead letter queue.
func settle(err error, redelivered bool) settlement {
	switch {
	case err == nil:
		return settleAck
	case errors.Is(err, ErrPoisonMessage), redelivered:
		return settleDeadLetter
	default:
		return settleRequeue
	}
}

// StartConsuming blocks consuming the queue until ctx is cancelled
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.logger.Info("consumer_stopped", "Consumer stopped by context", "", nil)
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		c.logger.Error("consumer_channel_closed", "Message channel closed, attempting to reconnect", "", nil, nil)
		if err := c.conn.Reconnect(ctx); err != nil {
			return fmt.Errorf("failed to reconnect after channel closed: %w", err)
		}
	}
}

// consume returns nil when the delivery channel closes
func (c *Consumer) consume(ctx context.Context, handler MessageHandler) error {
	if c.conn.IsClosed() {
		if err := c.conn.Reconnect(ctx); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"prefetch": c.prefetch,
		})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.processMessage(ctx, d, handler)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, delivery amqp091.Delivery, handler MessageHandler) {
	startTime := time.Now()

	processingCtx, cancel := context.WithTimeout(ctx, c.processTimeout)
	defer cancel()

	err := handler(processingCtx, delivery.Body)
	fields := map[string]interface{}{
		"queue":        c.queueName,
		"routing_key":  delivery.RoutingKey,
		"duration_ms":  time.Since(startTime).Milliseconds(),
		"delivery_tag": delivery.DeliveryTag,
		"redelivered":  delivery.Redelivered,
	}

	switch settle(err, delivery.Redelivered) {
	case settleAck:
		c.logger.Debug("message_processed", "Successfully processed message", "", fields)
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("message_ack_failed", "Failed to ack message", "", ackErr, nil)
		}
	case settleRequeue:
		c.logger.Error("message_processing_failed", "Failed to process message, requeueing", "", err, fields)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, nil)
		}
	case settleDeadLetter:
		c.logger.Error("message_dead_lettered", "Failed to process message, dead-lettering", "", err, fields)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, nil)
		}
	}
}

// Close cancels the consumer and closes the connection
func (c *Consumer) Close() error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Channel().Cancel(c.consumerTag, false); err != nil {
		c.logger.Error("consumer_cancel_failed", "Failed to cancel consumer", "", err, nil)
	}
	return c.conn.Close()
}
