package repository

import (
	"context"
	"fmt"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	pkgkafka "SignalDeck/pkg/kafka"
)

// KafkaEventPublisher implements EventPublisher over the shared producer.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) domrepo.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// Publish sends one lifecycle event, keyed by signal id for per-signal
// ordering.
func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.Event) error {
	var key []byte
	if ev.SignalID != "" {
		key = []byte(ev.SignalID)
	}
	if err := p.producer.Publish(ctx, p.topic, key, ev); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NoopEventPublisher is used when eventing is disabled.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(ctx context.Context, _ models.Event) error { return nil }
func (NoopEventPublisher) Close() error                                      { return nil }

var _ domrepo.EventPublisher = NoopEventPublisher{}
