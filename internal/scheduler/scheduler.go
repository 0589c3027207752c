// Package scheduler periodically runs enabled suppression rules. Each cycle
// loads a rule's bucket history from the state store, hands it to the
// aggregator, and persists the updated history it returns.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/notification"
	"github.com/pugnascotia/fleetwatch/internal/store"
	"github.com/pugnascotia/fleetwatch/internal/suppression"
)

// Aggregator runs one grouped aggregation pass.
type Aggregator interface {
	GroupAndCreate(ctx context.Context, params suppression.GroupParams) suppression.GroupResult
}

// Scheduler drives suppression rules on a fixed interval.
type Scheduler struct {
	rules      store.SuppressionRuleRepository
	history    store.BucketHistoryStore
	aggregator Aggregator
	notifier   notification.Notifier
	interval   time.Duration
	logger     *slog.Logger
}

func New(
	rules store.SuppressionRuleRepository,
	history store.BucketHistoryStore,
	aggregator Aggregator,
	notifier notification.Notifier,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		rules:      rules,
		history:    history,
		aggregator: aggregator,
		notifier:   notifier,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs cycles until the context is canceled. The first cycle runs
// immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting suppression scheduler", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("suppression scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle runs every enabled rule once. A failing rule does not stop the
// cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		s.logger.Error("failed to list suppression rules", slog.String("error", err.Error()))
		return
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if _, err := s.RunRule(ctx, rule); err != nil {
			s.logger.Error("suppression rule run failed",
				slog.String("rule_id", rule.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// RunRule executes one aggregation pass for the rule, round-tripping the
// bucket history through the state store. It is also the entry point for
// manually triggered runs.
func (s *Scheduler) RunRule(ctx context.Context, rule *domain.SuppressionRule) (suppression.GroupResult, error) {
	history, err := s.history.GetHistory(ctx, rule.ID)
	if err != nil {
		return suppression.GroupResult{}, fmt.Errorf("failed to load bucket history: %w", err)
	}

	now := time.Now().UTC()
	result := s.aggregator.GroupAndCreate(ctx, suppression.GroupParams{
		Rule:          rule,
		From:          now.Add(-rule.TimeWindow()),
		To:            now,
		MaxSignals:    rule.MaxSignals,
		BucketHistory: history,
	})

	// The returned history is valid even for failed passes; persisting it
	// keeps pruning progress across runs.
	if err := s.history.SetHistory(ctx, rule.ID, result.BucketHistory); err != nil {
		return result, fmt.Errorf("failed to persist bucket history: %w", err)
	}
	if err := s.history.SetLastRun(ctx, rule.ID, now); err != nil {
		return result, fmt.Errorf("failed to record last run: %w", err)
	}

	if result.CreatedCount > 0 && s.notifier != nil {
		if err := s.notifier.Notify(ctx, rule, result.CreatedCount); err != nil {
			s.logger.Warn("notification failed",
				slog.String("rule_id", rule.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return result, nil
}
