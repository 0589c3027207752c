// Package memory provides an in-memory implementation of the queue
// interfaces, used for tests and single-process development.
package memory

import (
	"context"
	"sync"

	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/queue"
)

// Queue is an in-memory implementation of both Producer and Consumer.
// Jobs pass through a buffered channel, giving simple in-process
// hand-off from the tag-update controller to the batch runner. Safe for
// concurrent use.
type Queue struct {
	jobs   chan *domain.TagUpdateJob
	closed bool
	mu     sync.RWMutex
	wg     sync.WaitGroup
}

// NewQueue creates a queue holding up to bufferSize undelivered jobs.
// Publish blocks once the buffer is full.
func NewQueue(bufferSize int) *Queue {
	return &Queue{
		jobs: make(chan *domain.TagUpdateJob, bufferSize),
	}
}

// Publish enqueues a job. Blocks while the queue is full until space is
// available or the context is canceled.
func (q *Queue) Publish(ctx context.Context, job *domain.TagUpdateJob) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start delivers queued jobs to the handler until the context is
// canceled or the queue is closed.
func (q *Queue) Start(ctx context.Context, handler queue.JobHandler) error {
	q.wg.Add(1)
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-q.jobs:
			if !ok {
				// Channel closed
				return nil
			}
			// Handler failures are the handler's to record; the queue
			// keeps delivering subsequent jobs.
			if err := handler(ctx, job); err != nil {
				continue
			}
		}
	}
}

// Close shuts down the queue, stopping all consumers.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.jobs)
	q.wg.Wait()
	return nil
}

// Len returns the current number of undelivered jobs.
// Useful for testing to verify queue state.
func (q *Queue) Len() int {
	return len(q.jobs)
}
