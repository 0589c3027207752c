package suppression

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// timestampField is the event time field all windows and history ranges
// apply to.
const timestampField = "timestamp"

// aggregation names used in the grouped search.
const (
	aggBuckets        = "bucket_groups"
	aggMinTimestamp   = "min_timestamp"
	aggMaxTimestamp   = "max_timestamp"
	aggRepresentative = "representative"
)

// buildExclusionFilter turns the pruned bucket history into a must_not
// clause: for each historical bucket, exclude documents matching all of its
// key terms and falling inside the time range up to its recorded end date.
// Returns nil when there is no history - the absence of a filter, not an
// empty one.
func buildExclusionFilter(history []domain.BucketHistoryEntry) []interface{} {
	if len(history) == 0 {
		return nil
	}

	clauses := make([]interface{}, 0, len(history))
	for _, entry := range history {
		filters := make([]interface{}, 0, len(entry.Key)+1)
		for field, value := range entry.Key {
			filters = append(filters, map[string]interface{}{
				"term": map[string]interface{}{field: value},
			})
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				timestampField: map[string]interface{}{
					"lte": entry.EndDate.UTC().Format(time.RFC3339),
				},
			},
		})
		clauses = append(clauses, map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		})
	}
	return clauses
}

// buildGroupedSearch builds the zero-hit grouped search body: the window's
// time range, the caller's base filter, the history exclusion filter, and a
// composite aggregation over the grouping fields capped at maxSignals.
// missing_bucket keeps events with absent grouping fields, surfacing them
// as null-keyed buckets.
func buildGroupedSearch(params *GroupParams, exclusion []interface{}, baseFilter map[string]interface{}) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				timestampField: map[string]interface{}{
					"gte": params.From.UTC().Format(time.RFC3339),
					"lte": params.To.UTC().Format(time.RFC3339),
				},
			},
		},
	}
	if baseFilter != nil {
		filters = append(filters, baseFilter)
	}

	boolQuery := map[string]interface{}{"filter": filters}
	if exclusion != nil {
		boolQuery["must_not"] = exclusion
	}

	sources := make([]interface{}, 0, len(params.Rule.GroupByFields))
	for _, field := range params.Rule.GroupByFields {
		sources = append(sources, map[string]interface{}{
			field: map[string]interface{}{
				"terms": map[string]interface{}{
					"field":          field,
					"missing_bucket": true,
				},
			},
		})
	}

	return map[string]interface{}{
		"size":  0,
		"query": map[string]interface{}{"bool": boolQuery},
		"aggs": map[string]interface{}{
			aggBuckets: map[string]interface{}{
				"composite": map[string]interface{}{
					"size":    params.MaxSignals,
					"sources": sources,
				},
				"aggs": map[string]interface{}{
					aggMinTimestamp: map[string]interface{}{
						"min": map[string]interface{}{"field": timestampField},
					},
					aggMaxTimestamp: map[string]interface{}{
						"max": map[string]interface{}{"field": timestampField},
					},
					aggRepresentative: map[string]interface{}{
						"top_hits": map[string]interface{}{
							"size": 1,
							"sort": []interface{}{
								map[string]interface{}{
									timestampField: map[string]interface{}{"order": "asc"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// parseBaseFilter parses the rule's raw query DSL fragment.
func parseBaseFilter(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var filter map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return nil, fmt.Errorf("invalid filter DSL: %w", err)
	}
	return filter, nil
}

// parseBuckets maps the composite aggregation response into suppression
// buckets. A missing aggregation result is a contract violation: grouped
// searches always carry aggregations when they succeed.
func parseBuckets(aggregations map[string]interface{}, params *GroupParams) ([]*domain.SuppressionBucket, error) {
	if aggregations == nil {
		return nil, fmt.Errorf("expected aggregations to be present in the grouped search response")
	}

	group, ok := aggregations[aggBuckets].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected %q aggregation to be present in the grouped search response", aggBuckets)
	}

	rawBuckets, _ := group["buckets"].([]interface{})
	buckets := make([]*domain.SuppressionBucket, 0, len(rawBuckets))
	for _, raw := range rawBuckets {
		bucketMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		bucket := &domain.SuppressionBucket{
			Start: params.From,
			End:   params.To,
		}

		if count, ok := bucketMap["doc_count"].(float64); ok {
			bucket.Count = int(count)
		}

		key, _ := bucketMap["key"].(map[string]interface{})
		for _, field := range params.Rule.GroupByFields {
			bucket.Terms = append(bucket.Terms, domain.BucketTerm{
				Field: field,
				Value: key[field],
			})
		}

		if ts, ok := parseTimestampAgg(bucketMap[aggMinTimestamp]); ok {
			bucket.Start = ts
		}
		if ts, ok := parseTimestampAgg(bucketMap[aggMaxTimestamp]); ok {
			bucket.End = ts
		}

		bucket.Event = parseRepresentative(bucketMap[aggRepresentative])
		buckets = append(buckets, bucket)
	}

	return buckets, nil
}

// parseTimestampAgg extracts a min/max aggregation value. Returns false
// when the aggregation value is absent, letting callers fall back to the
// window bounds.
func parseTimestampAgg(raw interface{}) (time.Time, bool) {
	agg, ok := raw.(map[string]interface{})
	if !ok {
		return time.Time{}, false
	}
	value, ok := agg["value_as_string"].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// parseRepresentative extracts the first top-hits source as the bucket's
// representative event.
func parseRepresentative(raw interface{}) map[string]interface{} {
	agg, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	hitsObj, ok := agg["hits"].(map[string]interface{})
	if !ok {
		return nil
	}
	hits, ok := hitsObj["hits"].([]interface{})
	if !ok || len(hits) == 0 {
		return nil
	}
	first, ok := hits[0].(map[string]interface{})
	if !ok {
		return nil
	}
	source, _ := first["_source"].(map[string]interface{})
	return source
}
