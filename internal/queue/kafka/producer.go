// Package kafka provides Kafka-backed implementations of the queue
// interfaces. Jobs travel as JSON, keyed by action ID so the batches of
// one action land on a single partition and stay ordered.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// Producer implements queue.Producer over a Kafka topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer.
func NewProducer(cfg *config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // route by action ID
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
	}
}

// Publish encodes the job and writes it to the topic.
func (p *Producer) Publish(ctx context.Context, job *domain.TagUpdateJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(job.ActionID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write job to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// encodeJob serializes a job for the wire.
func encodeJob(job *domain.TagUpdateJob) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tag update job: %w", err)
	}
	return payload, nil
}
