// Package suppression implements windowed, grouped alert generation with
// rolling bucket deduplication. A run groups matched events into buckets by
// the rule's grouping fields, creates one alert per newly observed bucket,
// and records each bucket in a history so that subsequent overlapping
// windows do not alert on it again.
package suppression

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/es"
	"github.com/pugnascotia/fleetwatch/internal/metrics"
)

// Engine is the search surface the aggregation pass needs.
type Engine interface {
	Search(ctx context.Context, index string, query map[string]interface{}) (*es.SearchResult, error)
	Bulk(ctx context.Context, index string, docs []es.BulkDoc) (*es.BulkResult, error)
}

// GroupParams carries one aggregation pass worth of input: the rule, the
// search window, and the bucket history accumulated by previous runs over
// overlapping windows.
type GroupParams struct {
	Rule *domain.SuppressionRule

	// From and To bound the search window.
	From time.Time
	To   time.Time

	// MaxSignals caps the number of buckets a single run may produce.
	MaxSignals int

	// BucketHistory is the caller-held dedup state. The run never mutates
	// it; the updated history is returned in the result.
	BucketHistory []domain.BucketHistoryEntry
}

// GroupResult is the outcome of one aggregation pass. A pass never returns
// a Go error: every failure folds into Errors, and BucketHistory is always
// valid for the caller to persist.
type GroupResult struct {
	Success      bool     `json:"success"`
	CreatedCount int      `json:"created_count"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`

	// Took is the engine-reported time in milliseconds spent creating
	// this pass's alerts. Zero when nothing was written.
	Took int `json:"took"`

	// BucketHistory is the pruned history plus entries for any buckets
	// alerted on during this pass.
	BucketHistory []domain.BucketHistoryEntry `json:"bucket_history,omitempty"`
}

// Service runs grouped aggregation passes and indexes the resulting alerts.
type Service struct {
	engine  Engine
	wrapper AlertWrapper
	cfg     *config.SuppressionConfig
	logger  *slog.Logger
}

func NewService(engine Engine, wrapper AlertWrapper, cfg *config.SuppressionConfig, logger *slog.Logger) *Service {
	return &Service{
		engine:  engine,
		wrapper: wrapper,
		cfg:     cfg,
		logger:  logger,
	}
}

// GroupAndCreate executes one aggregation pass. Expired history is pruned
// up front so that even a failed pass hands back a valid history. All
// failures, validation and runtime alike, fold into the result.
func (s *Service) GroupAndCreate(ctx context.Context, params GroupParams) GroupResult {
	start := time.Now()
	result := GroupResult{
		Success:       true,
		BucketHistory: domain.PruneBucketHistory(params.BucketHistory, params.From),
	}

	ruleID := "unknown"
	if params.Rule != nil {
		ruleID = params.Rule.ID
	}

	if err := s.run(ctx, &params, &result); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		s.logger.Error("suppression run failed",
			slog.String("rule_id", ruleID),
			slog.String("error", err.Error()))
	}

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	metrics.SuppressionRunsTotal.WithLabelValues(ruleID, outcome).Inc()
	metrics.SuppressionRunLatency.Observe(time.Since(start).Seconds())
	return result
}

// run performs the search, wrap, create, and history update steps. Any
// returned error is folded into the result by GroupAndCreate.
func (s *Service) run(ctx context.Context, params *GroupParams, result *GroupResult) error {
	if params.Rule == nil {
		return fmt.Errorf("suppression rule must be provided")
	}
	if len(params.Rule.GroupByFields) == 0 {
		return domain.ErrEmptyGroupByFields
	}
	if params.MaxSignals <= 0 {
		params.MaxSignals = s.cfg.DefaultMaxSignals
	}

	baseFilter, err := parseBaseFilter(params.Rule.Filter)
	if err != nil {
		return err
	}

	exclusion := buildExclusionFilter(result.BucketHistory)
	metrics.BucketsSuppressedTotal.WithLabelValues(params.Rule.ID).Add(float64(len(result.BucketHistory)))

	res, err := s.engine.Search(ctx, params.Rule.Index, buildGroupedSearch(params, exclusion, baseFilter))
	if err != nil {
		return fmt.Errorf("grouped search failed: %w", err)
	}

	buckets, err := parseBuckets(res.Aggregations, params)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		s.logger.Debug("no new suppression buckets",
			slog.String("rule_id", params.Rule.ID))
		return nil
	}

	now := time.Now().UTC()
	docs := make([]es.BulkDoc, 0, len(buckets))
	for _, bucket := range buckets {
		alert := s.wrapper.Wrap(params.Rule, bucket, now)
		docs = append(docs, es.BulkDoc{ID: alert.ID, Source: alert})
	}

	bulkRes, err := s.engine.Bulk(ctx, s.cfg.AlertsIndex, docs)
	if err != nil {
		return fmt.Errorf("alert creation failed: %w", err)
	}

	result.CreatedCount += bulkRes.Created
	result.Took += bulkRes.Took
	metrics.AlertsCreatedTotal.WithLabelValues(params.Rule.ID).Add(float64(bulkRes.Created))
	if len(bulkRes.Errors) > 0 {
		result.Success = false
		for _, itemErr := range bulkRes.Errors {
			result.Errors = append(result.Errors,
				fmt.Sprintf("alert %s: %s", itemErr.ID, itemErr.Reason))
		}
	}

	// Null-keyed buckets are alerted on but never recorded: a null key
	// cannot seed a stable exclusion filter for future windows.
	for _, bucket := range buckets {
		if bucket.HasNullKey() {
			result.Warnings = append(result.Warnings,
				"bucket with null grouping value not recorded in history")
			continue
		}
		result.BucketHistory = append(result.BucketHistory, domain.BucketHistoryEntry{
			Key:     bucket.HistoryKey(),
			EndDate: bucket.End,
		})
	}

	s.logger.Info("suppression run complete",
		slog.String("rule_id", params.Rule.ID),
		slog.Int("buckets", len(buckets)),
		slog.Int("created", bulkRes.Created),
		slog.Int("history_size", len(result.BucketHistory)))
	return nil
}
