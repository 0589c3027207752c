// Package es wraps the Elasticsearch client with the three operations the
// rest of the service needs: search, scoped update-by-query, and bulk
// indexing. Queries are built as plain maps so the DSL shape on the wire is
// exactly what the caller wrote.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pugnascotia/fleetwatch/internal/config"
)

// Client wraps an Elasticsearch client.
type Client struct {
	ES *elasticsearch.Client
}

// New creates a client from the elasticsearch config section.
func New(cfg *config.ElasticsearchConfig) (*Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{ES: client}, nil
}

// Search executes a body-driven search against the given index.
func (c *Client) Search(ctx context.Context, index string, query map[string]interface{}) (*SearchResult, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(index),
		c.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &SearchResult{
		Total:        r.Hits.Total.Value,
		Aggregations: r.Aggregations,
	}
	for _, hit := range r.Hits.Hits {
		result.Hits = append(result.Hits, hit.Source)
	}
	return result, nil
}

// UpdateByQuery executes a scoped update against all documents in the index
// matching the body's query. Conflicts are reported in the result rather
// than aborting the request, so callers can count them and decide whether
// to retry.
func (c *Client) UpdateByQuery(ctx context.Context, index string, body map[string]interface{}) (*UpdateByQueryResult, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode update body: %w", err)
	}

	refresh := true
	req := esapi.UpdateByQueryRequest{
		Index:     []string{index},
		Body:      &buf,
		Conflicts: "proceed",
		Refresh:   &refresh,
	}

	res, err := req.Do(ctx, c.ES)
	if err != nil {
		return nil, fmt.Errorf("update by query failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("update by query returned %s", res.Status())
	}

	var result UpdateByQueryResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}
	return &result, nil
}

// Bulk indexes the given documents into the index with a single bulk
// request.
func (c *Client) Bulk(ctx context.Context, index string, docs []BulkDoc) (*BulkResult, error) {
	if len(docs) == 0 {
		return &BulkResult{}, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := map[string]interface{}{"index": map[string]interface{}{}}
		if doc.ID != "" {
			meta["index"].(map[string]interface{})["_id"] = doc.ID
		}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc.Source); err != nil {
			return nil, fmt.Errorf("failed to encode bulk document: %w", err)
		}
	}

	refresh := "true"
	req := esapi.BulkRequest{
		Index:   index,
		Body:    &buf,
		Refresh: refresh,
	}

	res, err := req.Do(ctx, c.ES)
	if err != nil {
		return nil, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("bulk request returned %s", res.Status())
	}

	var r bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	result := &BulkResult{Took: r.Took}
	for _, item := range r.Items {
		for _, op := range item {
			if op.Error != nil {
				result.Errors = append(result.Errors, BulkItemError{
					ID:     op.ID,
					Reason: op.Error.Reason,
				})
			} else {
				result.Created++
			}
		}
	}
	return result, nil
}
