package fleet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/queue"
)

// Runner consumes tag-update jobs and executes them as sequential
// single-batch updates. The aggregate action record was already
// persisted with the resolved total when the job was handed off, so
// each batch appends only per-agent results under the job's action ID;
// a failed batch does not roll back or touch the recording of earlier
// batches. Each batch runs the same controller logic as the synchronous
// path, including the version-conflict retry loop.
type Runner struct {
	consumer queue.Consumer
	service  *Service
	logger   *slog.Logger
}

// NewRunner creates a new batch runner.
func NewRunner(consumer queue.Consumer, service *Service, logger *slog.Logger) *Runner {
	return &Runner{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming jobs. This is a blocking call that runs until
// the context is canceled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("starting tag update batch runner")
	return r.consumer.Start(ctx, r.run)
}

// Stop gracefully stops the runner.
func (r *Runner) Stop() error {
	r.logger.Info("stopping tag update batch runner")
	return r.consumer.Close()
}

// run pages through the job's matching agents and updates them batch by
// batch.
func (r *Runner) run(ctx context.Context, job *domain.TagUpdateJob) error {
	r.logger.Info("executing tag update job",
		"actionID", job.ActionID,
		"total", job.Total,
		"batchSize", job.BatchSize,
	)

	selection := &domain.TagUpdateRequest{
		Kuery:        job.Kuery,
		TagsToAdd:    job.TagsToAdd,
		TagsToRemove: job.TagsToRemove,
	}

	searchAfter := ""
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := r.nextPage(ctx, selection, job.BatchSize, searchAfter)
		if err != nil {
			r.logger.Error("failed to resolve agent batch",
				"actionID", job.ActionID,
				"error", err,
			)
			return err
		}
		if len(page) == 0 {
			break
		}
		searchAfter = page[len(page)-1]
		batches++

		req := &domain.TagUpdateRequest{
			AgentIDs:     page,
			TagsToAdd:    job.TagsToAdd,
			TagsToRemove: job.TagsToRemove,
		}
		if err := r.runBatch(ctx, job.ActionID, req); err != nil {
			// Prior batches have already recorded their outcomes; keep
			// going so the remaining agents still get updated.
			r.logger.Error("batch failed",
				"actionID", job.ActionID,
				"batch", batches,
				"error", err,
			)
		}
	}

	r.logger.Info("tag update job finished",
		"actionID", job.ActionID,
		"batches", batches,
	)
	return nil
}

// nextPage resolves the next batch of matching agent IDs in stable order.
func (r *Runner) nextPage(ctx context.Context, selection *domain.TagUpdateRequest, batchSize int, searchAfter string) ([]string, error) {
	return r.service.resolvePage(ctx, selection, batchSize, searchAfter)
}

// runBatch executes one explicit-ID batch with the version-conflict retry
// loop, reusing the job's action ID.
func (r *Runner) runBatch(ctx context.Context, actionID string, req *domain.TagUpdateRequest) error {
	req.Normalize()
	for {
		_, err := r.service.updateBatch(ctx, actionID, req, req.AgentIDs, len(req.AgentIDs), false)
		var conflict *VersionConflictError
		if errors.As(err, &conflict) {
			req.RetryCount++
			r.logger.Warn("retrying batch after version conflict",
				"actionID", actionID,
				"conflicts", conflict.Conflicts,
				"retryCount", req.RetryCount,
			)
			continue
		}
		return err
	}
}
