package domain

import "time"

// BucketHistoryEntry records a suppression bucket observed by a previous
// aggregation run. Entries are never mutated in place; a run appends new
// entries and drops expired ones.
type BucketHistoryEntry struct {
	// Key maps each grouping field to its scalar value (string or number).
	Key map[string]interface{} `json:"key"`

	// EndDate is the latest event timestamp observed in the bucket as of
	// the run that recorded it.
	EndDate time.Time `json:"endDate"`
}

// PruneBucketHistory drops entries whose EndDate is at or before the start
// of the current window. Expired history carries no value: it can no longer
// suppress anything inside the window.
func PruneBucketHistory(entries []BucketHistoryEntry, windowStart time.Time) []BucketHistoryEntry {
	pruned := make([]BucketHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.EndDate.After(windowStart) {
			pruned = append(pruned, entry)
		}
	}
	return pruned
}

// SuppressionBucket is one group of events sharing identical values for the
// configured grouping fields within the search window. It is owned by a
// single aggregation pass: consumed to build an alert, then discarded.
type SuppressionBucket struct {
	// Event is the representative matched document for the bucket.
	Event map[string]interface{}

	// Count is the number of matching events folded into the bucket.
	Count int

	// Start and End are the earliest and latest event timestamps within
	// the bucket, defaulting to the window bounds when absent.
	Start time.Time
	End   time.Time

	// Terms is the ordered sequence of (field, value) pairs identifying
	// the bucket.
	Terms []BucketTerm
}

// BucketTerm is one (field, value) pair of a bucket's identity.
type BucketTerm struct {
	Field string
	Value interface{}
}

// HasNullKey returns true if any grouping field of the bucket has a null
// value. Null-keyed buckets may still be alerted on, but are never written
// to history: a null key cannot seed a stable future exclusion filter.
func (b *SuppressionBucket) HasNullKey() bool {
	for _, term := range b.Terms {
		if term.Value == nil {
			return true
		}
	}
	return false
}

// HistoryKey returns the bucket identity as a history entry key map.
func (b *SuppressionBucket) HistoryKey() map[string]interface{} {
	key := make(map[string]interface{}, len(b.Terms))
	for _, term := range b.Terms {
		key[term.Field] = term.Value
	}
	return key
}
