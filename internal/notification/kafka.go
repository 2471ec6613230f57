package notification

import (
	"context"
	"encoding/json"
	"fmt"

	model "auction-marketplace/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes notifications to a topic keyed by recipient,
// so one user's notifications stay ordered within a partition
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (s *KafkaSink) Deliver(ctx context.Context, notifications []model.Notification) error {
	msgs := make([]kafka.Message, 0, len(notifications))
	for _, n := range notifications {
		body, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode notification %s: %w", n.NotificationID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(n.UserID),
			Value: body,
			Time:  n.CreatedAt,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(n.Type)},
			},
		})
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d notifications: %w", len(msgs), err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
