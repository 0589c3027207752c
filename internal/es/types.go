package es

// SearchResult is the decoded portion of a search response that callers
// consume: the authoritative hit total, the hit sources, and the raw
// aggregations object.
type SearchResult struct {
	Total        int
	Hits         []map[string]interface{}
	Aggregations map[string]interface{}
}

// FailureCause carries the engine's reason for a per-document failure.
type FailureCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Failure is one per-document failure from an update-by-query response.
type Failure struct {
	Index string       `json:"index"`
	ID    string       `json:"id"`
	Cause FailureCause `json:"cause"`
}

// UpdateByQueryResult is the decoded update-by-query response.
type UpdateByQueryResult struct {
	Took             int       `json:"took"`
	Total            int       `json:"total"`
	Updated          int       `json:"updated"`
	VersionConflicts int       `json:"version_conflicts"`
	Failures         []Failure `json:"failures"`
}

// BulkDoc is a single document to be indexed by a bulk request.
// An empty ID lets the engine assign one.
type BulkDoc struct {
	ID     string
	Source interface{}
}

// BulkItemError is a per-item failure from a bulk response.
type BulkItemError struct {
	ID     string
	Reason string
}

// BulkResult summarizes a bulk indexing response.
type BulkResult struct {
	Took    int
	Created int
	Errors  []BulkItemError
}

// searchResponse mirrors the wire format of a search response.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]interface{} `json:"aggregations"`
}

// bulkResponse mirrors the wire format of a bulk response.
type bulkResponse struct {
	Took   int  `json:"took"`
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}
