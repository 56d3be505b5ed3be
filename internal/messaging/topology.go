package messaging

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/models"
)

const (
	OrdersExchange        = "orders_topic"
	NotificationsExchange = "notifications_fanout"
	DeadLetterExchange    = "pos_dead_letter"

	GeneralKitchenQueue = "kitchen_queue"
	NotificationsQueue  = "notifications_queue"
	DeadLetterQueue     = "pos_dead_letters"

	messageTTL  = 300000
	maxPriority = 10
)

type binding struct {
	queue      string
	routingKey string
}

// KitchenQueue returns the queue carrying tickets of one order type
func KitchenQueue(orderType models.OrderType) string {
	return fmt.Sprintf("kitchen_%s_queue", orderType)
}

// QueueForStation picks the queue a station consumes. A station specialized
// in exactly one order type reads that type's queue; any other station reads
// the general queue.
func QueueForStation(specializations []models.OrderType) string {
	if len(specializations) == 1 {
		return KitchenQueue(specializations[0])
	}
	return GeneralKitchenQueue
}

func kitchenBindings() []binding {
	bindings := []binding{{GeneralKitchenQueue, "kitchen.#"}}
	for _, t := range []models.OrderType{models.DineIn, models.Takeout, models.Delivery} {
		bindings = append(bindings, binding{KitchenQueue(t), fmt.Sprintf("kitchen.%s.*", t)})
	}
	return bindings
}

// setupTopology declares exchanges, queues and bindings. Kitchen queues
// expire tickets after five minutes and route rejected ones to the dead
// letter queue.
func setupTopology(ch *amqp091.Channel) error {
	exchanges := []struct {
		name, kind string
	}{
		{OrdersExchange, "topic"},
		{NotificationsExchange, "fanout"},
		{DeadLetterExchange, "fanout"},
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare %s exchange: %w", ex.name, err)
		}
	}

	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue: %w", err)
	}
	if err := ch.QueueBind(DeadLetterQueue, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead letter queue: %w", err)
	}

	for _, b := range kitchenBindings() {
		_, err := ch.QueueDeclare(b.queue, true, false, false, false, amqp091.Table{
			"x-message-ttl":          messageTTL,
			"x-max-priority":         maxPriority,
			"x-dead-letter-exchange": DeadLetterExchange,
		})
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, OrdersExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", b.queue, b.routingKey, err)
		}
	}

	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, amqp091.Table{
		"x-dead-letter-exchange": DeadLetterExchange,
	}); err != nil {
		return fmt.Errorf("failed to declare notifications queue: %w", err)
	}
	if err := ch.QueueBind(NotificationsQueue, "", NotificationsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind notifications queue: %w", err)
	}

	return nil
}
