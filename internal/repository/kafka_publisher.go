package repository

import (
	"context"
	"fmt"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgkafka "PriceCast/pkg/kafka"
)

// KafkaPublisher emits one message per completed forecast, keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(p *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (p *KafkaPublisher) PublishForecast(ctx context.Context, s models.Summary) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s); err != nil {
		return fmt.Errorf("publish forecast %s: %w", s.RunID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }
