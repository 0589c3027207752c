// Package store defines interfaces for data persistence and state management.
// These abstractions allow swapping implementations (Redis, PostgreSQL,
// in-memory) without changing business logic.
package store

import (
	"context"
	"time"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// BucketHistoryStore persists suppression bucket history between aggregator
// runs. The aggregator itself never touches storage: history is threaded
// through its parameters and result, and the caller round-trips it here.
// Implementations must preserve key maps and timestamps faithfully.
// All methods must be safe for concurrent use.
type BucketHistoryStore interface {
	// GetHistory returns the recorded bucket history for a rule.
	// Returns an empty slice when the rule has no history.
	GetHistory(ctx context.Context, ruleID string) ([]domain.BucketHistoryEntry, error)

	// SetHistory replaces the recorded bucket history for a rule.
	SetHistory(ctx context.Context, ruleID string, entries []domain.BucketHistoryEntry) error

	// DeleteHistory removes all recorded history for a rule.
	DeleteHistory(ctx context.Context, ruleID string) error

	// GetLastRun returns when the rule last ran. Zero time when it never
	// ran.
	GetLastRun(ctx context.Context, ruleID string) (time.Time, error)

	// SetLastRun records when the rule last ran.
	SetLastRun(ctx context.Context, ruleID string, at time.Time) error

	// Close releases any resources held by the store.
	Close() error
}
