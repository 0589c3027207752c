package suppression

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/es"
)

type fakeEngine struct {
	searchIndex string
	searchBody  map[string]interface{}
	searchRes   *es.SearchResult
	searchErr   error

	bulkIndex string
	bulkDocs  []es.BulkDoc
	bulkRes   *es.BulkResult
	bulkErr   error
}

func (f *fakeEngine) Search(ctx context.Context, index string, query map[string]interface{}) (*es.SearchResult, error) {
	f.searchIndex = index
	f.searchBody = query
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchRes, nil
}

func (f *fakeEngine) Bulk(ctx context.Context, index string, docs []es.BulkDoc) (*es.BulkResult, error) {
	f.bulkIndex = index
	f.bulkDocs = docs
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	if f.bulkRes != nil {
		return f.bulkRes, nil
	}
	return &es.BulkResult{Created: len(docs)}, nil
}

func newTestService(engine *fakeEngine) *Service {
	cfg := &config.SuppressionConfig{
		AlertsIndex:       "fleetwatch-alerts",
		DefaultMaxSignals: 100,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(engine, NewDefaultWrapper(), cfg, logger)
}

func testRule() *domain.SuppressionRule {
	return &domain.SuppressionRule{
		ID:            "rule-1",
		Name:          "failed logins by host",
		Index:         "events",
		GroupByFields: []string{"host.name"},
		Severity:      "high",
		Enabled:       true,
	}
}

func aggResponse(buckets ...interface{}) *es.SearchResult {
	return &es.SearchResult{
		Aggregations: map[string]interface{}{
			aggBuckets: map[string]interface{}{
				"buckets": buckets,
			},
		},
	}
}

func rawBucket(key map[string]interface{}, count int, minTS, maxTS string) map[string]interface{} {
	return map[string]interface{}{
		"key":       key,
		"doc_count": float64(count),
		aggMinTimestamp: map[string]interface{}{
			"value_as_string": minTS,
		},
		aggMaxTimestamp: map[string]interface{}{
			"value_as_string": maxTS,
		},
		aggRepresentative: map[string]interface{}{
			"hits": map[string]interface{}{
				"hits": []interface{}{
					map[string]interface{}{
						"_source": map[string]interface{}{"message": "login failed"},
					},
				},
			},
		},
	}
}

func TestGroupAndCreateCreatesAlertsAndRecordsHistory(t *testing.T) {
	engine := &fakeEngine{
		searchRes: aggResponse(
			rawBucket(map[string]interface{}{"host.name": "web-1"}, 3,
				"2026-08-28T09:05:00Z", "2026-08-28T09:45:00Z"),
			rawBucket(map[string]interface{}{"host.name": "web-2"}, 7,
				"2026-08-28T09:10:00Z", "2026-08-28T09:55:00Z"),
		),
		bulkRes: &es.BulkResult{Created: 2, Took: 12},
	}
	svc := newTestService(engine)

	from := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule:       testRule(),
		From:       from,
		To:         from.Add(time.Hour),
		MaxSignals: 100,
	})

	if !result.Success {
		t.Fatalf("expected success, got errors %v", result.Errors)
	}
	if result.CreatedCount != 2 {
		t.Fatalf("expected 2 alerts created, got %d", result.CreatedCount)
	}
	if engine.searchIndex != "events" {
		t.Fatalf("expected search against the rule index, got %q", engine.searchIndex)
	}
	if engine.bulkIndex != "fleetwatch-alerts" {
		t.Fatalf("expected alerts indexed into the alerts index, got %q", engine.bulkIndex)
	}
	if result.Took != 12 {
		t.Fatalf("expected the engine's creation time carried over, got %d", result.Took)
	}
	if len(result.BucketHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(result.BucketHistory))
	}

	entry := result.BucketHistory[0]
	if entry.Key["host.name"] != "web-1" {
		t.Fatalf("unexpected history key: %v", entry.Key)
	}
	wantEnd := time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)
	if !entry.EndDate.Equal(wantEnd) {
		t.Fatalf("expected history end date %v, got %v", wantEnd, entry.EndDate)
	}
}

func TestGroupAndCreatePrunesHistoryBeforeSearching(t *testing.T) {
	from := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	history := []domain.BucketHistoryEntry{
		{Key: map[string]interface{}{"host.name": "stale"}, EndDate: from.Add(-time.Minute)},
		{Key: map[string]interface{}{"host.name": "live"}, EndDate: from.Add(time.Minute)},
	}

	engine := &fakeEngine{searchRes: aggResponse()}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule:          testRule(),
		From:          from,
		To:            from.Add(time.Hour),
		MaxSignals:    100,
		BucketHistory: history,
	})

	if !result.Success {
		t.Fatalf("expected success, got errors %v", result.Errors)
	}
	if len(result.BucketHistory) != 1 || result.BucketHistory[0].Key["host.name"] != "live" {
		t.Fatalf("expected only the live entry to survive pruning, got %v", result.BucketHistory)
	}

	boolQuery := engine.searchBody["query"].(map[string]interface{})["bool"].(map[string]interface{})
	mustNot, ok := boolQuery["must_not"].([]interface{})
	if !ok || len(mustNot) != 1 {
		t.Fatalf("expected exclusion filter built from the pruned history, got %v", boolQuery["must_not"])
	}
}

func TestGroupAndCreateSearchFailureFoldsIntoResult(t *testing.T) {
	from := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	history := []domain.BucketHistoryEntry{
		{Key: map[string]interface{}{"host.name": "stale"}, EndDate: from.Add(-time.Minute)},
		{Key: map[string]interface{}{"host.name": "live"}, EndDate: from.Add(time.Minute)},
	}

	engine := &fakeEngine{searchErr: errors.New("search_phase_execution_exception")}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule:          testRule(),
		From:          from,
		To:            from.Add(time.Hour),
		MaxSignals:    100,
		BucketHistory: history,
	})

	if result.Success {
		t.Fatal("expected failure when the search errors")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "search_phase_execution_exception") {
		t.Fatalf("expected the search error folded into Errors, got %v", result.Errors)
	}
	// failed passes still hand back a valid, pruned history
	if len(result.BucketHistory) != 1 || result.BucketHistory[0].Key["host.name"] != "live" {
		t.Fatalf("expected pruned history on failure, got %v", result.BucketHistory)
	}
}

func TestGroupAndCreateEmptyGroupByFieldsFails(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(engine)

	rule := testRule()
	rule.GroupByFields = nil

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: rule,
		From: time.Now().Add(-time.Hour),
		To:   time.Now(),
	})

	if result.Success {
		t.Fatal("expected failure without grouping fields")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "group_by_fields") {
		t.Fatalf("expected the validation error in Errors, got %v", result.Errors)
	}
	if engine.searchBody != nil {
		t.Fatal("expected no search to be issued")
	}
}

func TestGroupAndCreateMissingAggregationsFails(t *testing.T) {
	engine := &fakeEngine{searchRes: &es.SearchResult{}}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: testRule(),
		From: time.Now().Add(-time.Hour),
		To:   time.Now(),
	})

	if result.Success {
		t.Fatal("expected failure when aggregations are absent")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "aggregations") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}

func TestGroupAndCreateNoBucketsIsSuccess(t *testing.T) {
	engine := &fakeEngine{searchRes: aggResponse()}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: testRule(),
		From: time.Now().Add(-time.Hour),
		To:   time.Now(),
	})

	if !result.Success {
		t.Fatalf("expected success for an empty window, got errors %v", result.Errors)
	}
	if result.CreatedCount != 0 {
		t.Fatalf("expected no alerts, got %d", result.CreatedCount)
	}
	if engine.bulkDocs != nil {
		t.Fatal("expected no bulk request for an empty window")
	}
}

func TestGroupAndCreateNullKeyBucketSkipsHistory(t *testing.T) {
	engine := &fakeEngine{
		searchRes: aggResponse(
			rawBucket(map[string]interface{}{"host.name": nil}, 5,
				"2026-08-28T09:05:00Z", "2026-08-28T09:45:00Z"),
		),
	}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: testRule(),
		From: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	})

	if !result.Success {
		t.Fatalf("expected success, got errors %v", result.Errors)
	}
	if result.CreatedCount != 1 {
		t.Fatalf("expected the null-keyed bucket to still produce an alert, got %d", result.CreatedCount)
	}
	if len(result.BucketHistory) != 0 {
		t.Fatalf("expected no history entry for a null-keyed bucket, got %v", result.BucketHistory)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a warning for the unrecorded bucket, got %v", result.Warnings)
	}
}

func TestGroupAndCreateBulkItemErrorsFoldIntoResult(t *testing.T) {
	engine := &fakeEngine{
		searchRes: aggResponse(
			rawBucket(map[string]interface{}{"host.name": "web-1"}, 3,
				"2026-08-28T09:05:00Z", "2026-08-28T09:45:00Z"),
			rawBucket(map[string]interface{}{"host.name": "web-2"}, 7,
				"2026-08-28T09:10:00Z", "2026-08-28T09:55:00Z"),
		),
		bulkRes: &es.BulkResult{
			Created: 1,
			Errors:  []es.BulkItemError{{ID: "alert-2", Reason: "mapper_parsing_exception"}},
		},
	}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: testRule(),
		From: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	})

	if result.Success {
		t.Fatal("expected failure when some alerts fail to index")
	}
	if result.CreatedCount != 1 {
		t.Fatalf("expected the successful creation counted, got %d", result.CreatedCount)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "mapper_parsing_exception") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	// partial indexing failures do not lose the observed buckets
	if len(result.BucketHistory) != 2 {
		t.Fatalf("expected both buckets recorded, got %v", result.BucketHistory)
	}
}

func TestGroupAndCreateDefaultsMaxSignals(t *testing.T) {
	engine := &fakeEngine{searchRes: aggResponse()}
	svc := newTestService(engine)

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: testRule(),
		From: time.Now().Add(-time.Hour),
		To:   time.Now(),
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}

	composite := engine.searchBody["aggs"].(map[string]interface{})[aggBuckets].(map[string]interface{})["composite"].(map[string]interface{})
	if composite["size"] != 100 {
		t.Fatalf("expected the configured default cap, got %v", composite["size"])
	}
}

func TestGroupAndCreateInvalidRuleFilterFails(t *testing.T) {
	engine := &fakeEngine{}
	svc := newTestService(engine)

	rule := testRule()
	rule.Filter = "{not json"

	result := svc.GroupAndCreate(context.Background(), GroupParams{
		Rule: rule,
		From: time.Now().Add(-time.Hour),
		To:   time.Now(),
	})

	if result.Success {
		t.Fatal("expected failure for an unparseable rule filter")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "invalid filter DSL") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}
