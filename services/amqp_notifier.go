package services

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const OrdersExchange = "orders_topic"

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes status edges to a topic exchange with routing key
// order.<status>.
type AMQPNotifier struct {
	Channel Publisher
	conn    *amqp.Connection
}

// DialAMQP connects and declares the orders exchange.
func DialAMQP(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, opError("amqp dial", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, opError("amqp channel", err)
	}
	if err := ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, opError("amqp exchange declare", err)
	}
	return &AMQPNotifier{Channel: ch, conn: conn}, nil
}

func (n *AMQPNotifier) Close() {
	if ch, ok := n.Channel.(*amqp.Channel); ok {
		_ = ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}

func (n *AMQPNotifier) Name() string { return "amqp" }

type orderStatusMessage struct {
	RestaurantID uint   `json:"restaurant_id"`
	OrderID      uint   `json:"order_id"`
	OrderNumber  int    `json:"order_number"`
	Status       string `json:"status"`
	UserID       *uint  `json:"user_id,omitempty"`
	Title        string `json:"title"`
	Message      string `json:"message"`
}

func (n *AMQPNotifier) Notify(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(orderStatusMessage{
		RestaurantID: event.Order.RestaurantID,
		OrderID:      event.Order.ID,
		OrderNumber:  event.Order.OrderNumber,
		Status:       event.Order.Status,
		UserID:       event.Order.UserID,
		Title:        event.Title,
		Message:      event.Message,
	})
	if err != nil {
		return err
	}
	return n.Channel.PublishWithContext(ctx, OrdersExchange, "order."+event.Order.Status, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}
