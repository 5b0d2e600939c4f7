package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/shopora/checkout/internal/domain/outbox"
)

// Publisher writes order lifecycle events to a Kafka topic as JSON, keyed by
// event name so consumers can partition by type. It satisfies the outbox
// Publisher port; the in-memory bus remains the default for single-process
// deployments.
type Publisher struct {
	writer *kafkago.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

type envelope struct {
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (p *Publisher) Publish(ctx context.Context, e outbox.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal %s: %w", e.EventName(), err)
	}
	body, err := json.Marshal(envelope{
		Event:      e.EventName(),
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal envelope: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(e.EventName()),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("kafka publisher: write %s: %w", e.EventName(), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
