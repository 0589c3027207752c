// Package queue defines the interfaces that hand oversized tag updates
// to the asynchronous batch runner. The abstraction allows swapping
// implementations (Kafka, in-memory) without changing business logic.
package queue

import (
	"context"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// Producer publishes tag-update jobs for the batch runner.
// Implementations must be safe for concurrent use and must deliver jobs
// for the same action in publish order.
type Producer interface {
	// Publish enqueues a job for the batch runner.
	Publish(ctx context.Context, job *domain.TagUpdateJob) error

	// Close releases any resources held by the producer.
	Close() error
}

// JobHandler is a callback for processing consumed jobs. Return an error
// to indicate processing failure (implementation may redeliver).
type JobHandler func(ctx context.Context, job *domain.TagUpdateJob) error

// Consumer delivers published jobs to a handler.
type Consumer interface {
	// Start begins consuming jobs and calls the handler for each one.
	// This is a blocking call that runs until the context is canceled
	// or an unrecoverable error occurs.
	Start(ctx context.Context, handler JobHandler) error

	// Close stops consuming and releases any resources.
	Close() error
}
