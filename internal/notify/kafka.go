package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes each message as a JSON event keyed by recipient.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

type event struct {
	EventID   string    `json:"event_id"`
	EventType Kind      `json:"event_type"`
	Payload   Message   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func NewKafkaNotifier(cfg KafkaConfig) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	value, err := json.Marshal(event{
		EventID:   uuid.NewString(),
		EventType: msg.Kind,
		Payload:   msg,
		Timestamp: n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Recipient),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
