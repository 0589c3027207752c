// Package redis provides Redis-based implementations of the store interfaces.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// Key prefixes for different data types in Redis.
const (
	prefixHistory = "suppression:history:"
	prefixLastRun = "suppression:lastrun:"
)

// BucketHistoryStore implements store.BucketHistoryStore using Redis.
// Each rule's history is stored as one JSON blob; entries round-trip with
// RFC3339 timestamps and scalar key values intact.
type BucketHistoryStore struct {
	client *redis.Client
}

// NewBucketHistoryStore creates a new Redis-backed bucket history store.
func NewBucketHistoryStore(cfg *config.RedisConfig) (*BucketHistoryStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &BucketHistoryStore{client: client}, nil
}

// historyKey generates the Redis key for a rule's bucket history.
func historyKey(ruleID string) string {
	return prefixHistory + ruleID
}

// lastRunKey generates the Redis key for a rule's last run time.
func lastRunKey(ruleID string) string {
	return prefixLastRun + ruleID
}

// GetHistory returns the recorded bucket history for a rule.
func (s *BucketHistoryStore) GetHistory(ctx context.Context, ruleID string) ([]domain.BucketHistoryEntry, error) {
	data, err := s.client.Get(ctx, historyKey(ruleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bucket history: %w", err)
	}

	var entries []domain.BucketHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bucket history: %w", err)
	}
	return entries, nil
}

// SetHistory replaces the recorded bucket history for a rule.
func (s *BucketHistoryStore) SetHistory(ctx context.Context, ruleID string, entries []domain.BucketHistoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal bucket history: %w", err)
	}

	if err := s.client.Set(ctx, historyKey(ruleID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set bucket history: %w", err)
	}
	return nil
}

// DeleteHistory removes all recorded history for a rule.
func (s *BucketHistoryStore) DeleteHistory(ctx context.Context, ruleID string) error {
	if err := s.client.Del(ctx, historyKey(ruleID)).Err(); err != nil {
		return fmt.Errorf("failed to delete bucket history: %w", err)
	}
	return nil
}

// GetLastRun returns when the rule last ran. Zero time when it never ran.
func (s *BucketHistoryStore) GetLastRun(ctx context.Context, ruleID string) (time.Time, error) {
	data, err := s.client.Get(ctx, lastRunKey(ruleID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, data)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last run: %w", err)
	}
	return at, nil
}

// SetLastRun records when the rule last ran.
func (s *BucketHistoryStore) SetLastRun(ctx context.Context, ruleID string, at time.Time) error {
	if err := s.client.Set(ctx, lastRunKey(ruleID), at.Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to set last run: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *BucketHistoryStore) Close() error {
	return s.client.Close()
}
