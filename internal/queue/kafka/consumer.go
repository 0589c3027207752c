package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/queue"
)

// Consumer implements queue.Consumer over a Kafka consumer group.
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(cfg *config.KafkaConfig, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{
		reader: reader,
		logger: logger,
	}
}

// Start fetches jobs and calls the handler for each one. Payloads that
// do not decode as a job are committed and dropped: redelivery cannot
// make them parse.
func (c *Consumer) Start(ctx context.Context, handler queue.JobHandler) error {
	c.logger.Info("starting kafka consumer",
		"topic", c.reader.Config().Topic,
		"group", c.reader.Config().GroupID,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch job", "error", err)
			continue
		}

		job, err := decodeJob(msg.Value)
		if err != nil {
			c.logger.Error("dropping undecodable job",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("failed to commit job: %w", err)
			}
			continue
		}

		if err := handler(ctx, job); err != nil {
			c.logger.Error("failed to process job",
				"error", err,
				"actionID", job.ActionID,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			// Left uncommitted for redelivery; keep consuming.
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit job",
				"error", err,
				"actionID", job.ActionID,
			)
			return fmt.Errorf("failed to commit job: %w", err)
		}
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

// decodeJob deserializes a job payload.
func decodeJob(value []byte) (*domain.TagUpdateJob, error) {
	var job domain.TagUpdateJob
	if err := json.Unmarshal(value, &job); err != nil {
		return nil, fmt.Errorf("failed to decode tag update job: %w", err)
	}
	return &job, nil
}
