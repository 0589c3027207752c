package fleet

import (
	"time"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// terminalStatuses are agent lifecycle states a scoped update must never
// touch.
var terminalStatuses = []interface{}{
	string(domain.AgentStatusInactive),
	string(domain.AgentStatusUnenrolled),
}

// buildSelectionQuery returns the bool query matching the request's target
// agents, always excluding agents in a terminal lifecycle state.
func buildSelectionQuery(req *domain.TagUpdateRequest, agentIDs []string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must_not": []interface{}{
			map[string]interface{}{
				"terms": map[string]interface{}{"status": terminalStatuses},
			},
		},
	}

	var filters []interface{}
	if len(agentIDs) > 0 {
		ids := make([]interface{}, 0, len(agentIDs))
		for _, id := range agentIDs {
			ids = append(ids, id)
		}
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"agent_id": ids},
		})
	} else if req.Kuery != "" {
		filters = append(filters, map[string]interface{}{
			"query_string": map[string]interface{}{"query": req.Kuery},
		})
	}

	// When exactly one tag is changing, skip agents for which the update
	// would be a no-op. This is a throughput optimization: correctness
	// does not depend on it, so it is only applied in the single-tag case.
	switch {
	case len(req.TagsToAdd) == 1 && len(req.TagsToRemove) == 0:
		boolQuery["must_not"] = append(boolQuery["must_not"].([]interface{}),
			map[string]interface{}{
				"match": map[string]interface{}{"tags": req.TagsToAdd[0]},
			},
		)
	case len(req.TagsToRemove) == 1 && len(req.TagsToAdd) == 0:
		boolQuery["should"] = []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{"tags": req.TagsToRemove[0]},
			},
		}
		boolQuery["minimum_should_match"] = 1
	}

	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]interface{}{"bool": boolQuery}
}

// buildCountQuery returns a zero-hit search body that resolves the
// request's target count.
func buildCountQuery(req *domain.TagUpdateRequest) map[string]interface{} {
	return map[string]interface{}{
		"size":  0,
		"query": buildSelectionQuery(req, req.AgentIDs),
	}
}

// buildUpdateBody returns the full update-by-query body: the selection
// query plus the tag mutation script.
func buildUpdateBody(req *domain.TagUpdateRequest, agentIDs []string, now time.Time) map[string]interface{} {
	tagsToAdd := make([]interface{}, 0, len(req.TagsToAdd))
	for _, tag := range req.TagsToAdd {
		tagsToAdd = append(tagsToAdd, tag)
	}
	tagsToRemove := make([]interface{}, 0, len(req.TagsToRemove))
	for _, tag := range req.TagsToRemove {
		tagsToRemove = append(tagsToRemove, tag)
	}

	return map[string]interface{}{
		"query": buildSelectionQuery(req, agentIDs),
		"script": map[string]interface{}{
			"source": "if (ctx._source.tags == null) { ctx._source.tags = new ArrayList(); } " +
				"for (t in params.tagsToRemove) { ctx._source.tags.removeIf(tag -> tag == t); } " +
				"for (t in params.tagsToAdd) { if (!ctx._source.tags.contains(t)) { ctx._source.tags.add(t); } } " +
				"ctx._source.updated_at = params.updatedAt;",
			"lang": "painless",
			"params": map[string]interface{}{
				"tagsToAdd":    tagsToAdd,
				"tagsToRemove": tagsToRemove,
				"updatedAt":    now.UTC().Format(time.RFC3339),
			},
		},
	}
}

// buildPageQuery returns a search body that pages through matching agent
// IDs in stable order. searchAfter is the last agent ID of the previous
// page; empty for the first page.
func buildPageQuery(req *domain.TagUpdateRequest, pageSize int, searchAfter string) map[string]interface{} {
	body := map[string]interface{}{
		"size":    pageSize,
		"query":   buildSelectionQuery(req, nil),
		"_source": []interface{}{"agent_id"},
		"sort": []interface{}{
			map[string]interface{}{"agent_id": map[string]interface{}{"order": "asc"}},
		},
	}
	if searchAfter != "" {
		body["search_after"] = []interface{}{searchAfter}
	}
	return body
}
