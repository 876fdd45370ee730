package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
)

// KafkaPublisher writes event envelopes to a fixed topic, partitioned by the
// envelope's partition key so all events for one offering or request land in
// order.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

func (p *KafkaPublisher) publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(envelope.PartitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, envelope)
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, envelope)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
