package notification

import (
	"context"
	"encoding/json"
	"fmt"

	model "auction-marketplace/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes each notification to a topic exchange under
// the routing key "notification.<type>"
type AMQPSink struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSink{conn: conn, ch: ch, exchange: exchange}, nil
}

func (s *AMQPSink) Deliver(ctx context.Context, notifications []model.Notification) error {
	for _, n := range notifications {
		body, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode notification %s: %w", n.NotificationID, err)
		}
		err = s.ch.PublishWithContext(ctx, s.exchange, "notification."+string(n.Type), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.NotificationID,
			Timestamp:    n.CreatedAt,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish notification %s: %w", n.NotificationID, err)
		}
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
