package repository

import (
	"context"

	"GoldPulse/internal/domain/models"
	"GoldPulse/internal/domain/repository"
	pkgkafka "GoldPulse/pkg/kafka"
)

// KafkaTickPublisher implements TickPublisher for Kafka.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTickPublisher creates a Kafka tick publisher.
func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) repository.TickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, symbol string, s *models.PriceSample) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), map[string]interface{}{
		"symbol": symbol,
		"ts":     s.Timestamp.Unix(),
		"price":  s.Price,
		"bid":    s.Bid,
		"ask":    s.Ask,
	})
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
