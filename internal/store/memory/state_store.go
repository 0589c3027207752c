// Package memory provides in-memory implementations of store interfaces.
// These are useful for testing and development without external dependencies.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// BucketHistoryStore is an in-memory implementation of the
// store.BucketHistoryStore interface. It uses maps with mutex protection
// for thread-safe access.
type BucketHistoryStore struct {
	mu sync.RWMutex

	// histories stores bucket history keyed by rule ID
	histories map[string][]domain.BucketHistoryEntry

	// lastRuns stores the last run time keyed by rule ID
	lastRuns map[string]time.Time
}

// NewBucketHistoryStore creates a new in-memory bucket history store.
func NewBucketHistoryStore() *BucketHistoryStore {
	return &BucketHistoryStore{
		histories: make(map[string][]domain.BucketHistoryEntry),
		lastRuns:  make(map[string]time.Time),
	}
}

// GetHistory returns the recorded bucket history for a rule.
func (s *BucketHistoryStore) GetHistory(ctx context.Context, ruleID string) ([]domain.BucketHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.histories[ruleID]

	// Return a copy to prevent external modification
	result := make([]domain.BucketHistoryEntry, len(entries))
	copy(result, entries)
	return result, nil
}

// SetHistory replaces the recorded bucket history for a rule.
func (s *BucketHistoryStore) SetHistory(ctx context.Context, ruleID string, entries []domain.BucketHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.BucketHistoryEntry, len(entries))
	copy(stored, entries)
	s.histories[ruleID] = stored
	return nil
}

// DeleteHistory removes all recorded history for a rule.
func (s *BucketHistoryStore) DeleteHistory(ctx context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.histories, ruleID)
	return nil
}

// GetLastRun returns when the rule last ran. Zero time when it never ran.
func (s *BucketHistoryStore) GetLastRun(ctx context.Context, ruleID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastRuns[ruleID], nil
}

// SetLastRun records when the rule last ran.
func (s *BucketHistoryStore) SetLastRun(ctx context.Context, ruleID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRuns[ruleID] = at
	return nil
}

// Close releases any resources held by the store.
func (s *BucketHistoryStore) Close() error {
	return nil
}
