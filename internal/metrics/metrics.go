// Package metrics provides Prometheus metrics for FleetWatch.
// It tracks tag-update attempts, version conflicts, and suppression runs
// to help identify noisy rules and measure fleet action throughput.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "fleetwatch"
)

// Tag update metrics track the bulk update pipeline.
var (
	// TagUpdatesTotal counts tag-update attempts by outcome.
	TagUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_updates_total",
			Help:      "Total number of tag update attempts",
		},
		[]string{"outcome"},
	)

	// TagUpdateConflictsTotal counts version conflicts reported by the engine.
	TagUpdateConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_update_conflicts_total",
			Help:      "Total number of version conflicts across scoped tag updates",
		},
	)

	// TagUpdateAgentsTotal counts agents covered by completed tag updates.
	TagUpdateAgentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_update_agents_total",
			Help:      "Total number of agents covered by completed tag updates",
		},
	)

	// TagUpdateBatchesDispatched counts updates escalated to the async runner.
	TagUpdateBatchesDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_update_batches_dispatched_total",
			Help:      "Total number of tag updates handed to the async batch runner",
		},
	)

	// TagUpdateLatency measures time spent in a single scoped update attempt.
	TagUpdateLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tag_update_latency_seconds",
			Help:      "Time spent executing a single scoped tag update in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// Suppression metrics track grouped alert generation.
var (
	// SuppressionRunsTotal counts aggregation passes by result.
	SuppressionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppression_runs_total",
			Help:      "Total number of suppression aggregation runs",
		},
		[]string{"rule_id", "result"},
	)

	// AlertsCreatedTotal counts alerts created by suppression runs.
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total number of alerts created from new suppression buckets",
		},
		[]string{"rule_id"},
	)

	// BucketsSuppressedTotal counts buckets dropped by the history filter.
	BucketsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buckets_suppressed_total",
			Help:      "Total number of buckets suppressed by the rolling history",
		},
		[]string{"rule_id"},
	)

	// SuppressionRunLatency measures the duration of a full aggregation pass.
	SuppressionRunLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suppression_run_latency_seconds",
			Help:      "Duration of a full suppression aggregation pass in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)
