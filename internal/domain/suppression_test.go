package domain

import (
	"testing"
	"time"
)

func TestPruneBucketHistory(t *testing.T) {
	windowStart := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []BucketHistoryEntry{
		{Key: map[string]interface{}{"host": "a"}, EndDate: windowStart.Add(-time.Hour)},
		{Key: map[string]interface{}{"host": "b"}, EndDate: windowStart.Add(time.Minute)},
		{Key: map[string]interface{}{"host": "c"}, EndDate: windowStart},
	}

	pruned := PruneBucketHistory(entries, windowStart)

	if len(pruned) != 1 {
		t.Fatalf("pruned length = %d, want 1", len(pruned))
	}
	if pruned[0].Key["host"] != "b" {
		t.Errorf("surviving entry key = %v, want host b", pruned[0].Key)
	}
}

func TestPruneBucketHistory_BoundaryIsPruned(t *testing.T) {
	windowStart := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []BucketHistoryEntry{
		{Key: map[string]interface{}{"host": "a"}, EndDate: windowStart},
	}

	pruned := PruneBucketHistory(entries, windowStart)

	if len(pruned) != 0 {
		t.Errorf("entry with EndDate equal to window start should be pruned, got %v", pruned)
	}
}

func TestPruneBucketHistory_Empty(t *testing.T) {
	pruned := PruneBucketHistory(nil, time.Now())
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want empty", pruned)
	}
}

func TestSuppressionBucket_HasNullKey(t *testing.T) {
	withNull := &SuppressionBucket{
		Terms: []BucketTerm{
			{Field: "host", Value: "a"},
			{Field: "user", Value: nil},
		},
	}
	withoutNull := &SuppressionBucket{
		Terms: []BucketTerm{
			{Field: "host", Value: "a"},
			{Field: "user", Value: float64(42)},
		},
	}

	if !withNull.HasNullKey() {
		t.Error("HasNullKey() should be true when a term value is nil")
	}
	if withoutNull.HasNullKey() {
		t.Error("HasNullKey() should be false when all term values are set")
	}
}

func TestSuppressionBucket_HistoryKey(t *testing.T) {
	bucket := &SuppressionBucket{
		Terms: []BucketTerm{
			{Field: "host", Value: "a"},
			{Field: "port", Value: float64(443)},
		},
	}

	key := bucket.HistoryKey()

	if key["host"] != "a" {
		t.Errorf("key[host] = %v, want a", key["host"])
	}
	if key["port"] != float64(443) {
		t.Errorf("key[port] = %v, want 443", key["port"])
	}
}
