package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	. "github.com/onsi/gomega"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/es"
)

const (
	agentsIndex        = "fleetwatch-agents-it"
	actionResultsIndex = "fleetwatch-action-results-it"
	eventsIndex        = "fleetwatch-events-it"
	alertsIndex        = "fleetwatch-alerts-it"
)

// --- Helper Functions ---

func newESClient() *es.Client {
	client, err := es.New(&config.ElasticsearchConfig{
		Addresses: []string{"http://localhost:9200"},
	})
	Expect(err).NotTo(HaveOccurred())
	return client
}

func setupIndices(client *es.Client) {
	cleanupIndices(client)

	createIndex(client, agentsIndex, `{
		"mappings": {
			"properties": {
				"agent_id":   { "type": "keyword" },
				"status":     { "type": "keyword" },
				"tags":       { "type": "keyword" },
				"policy_id":  { "type": "keyword" },
				"updated_at": { "type": "date" }
			}
		}
	}`)

	createIndex(client, actionResultsIndex, `{
		"mappings": {
			"properties": {
				"action_id":    { "type": "keyword" },
				"type":         { "type": "keyword" },
				"agents":       { "type": "keyword" },
				"total":        { "type": "integer" },
				"agent_id":     { "type": "keyword" },
				"error":        { "type": "text" },
				"timestamp":    { "type": "date" },
				"completed_at": { "type": "date" }
			}
		}
	}`)

	createIndex(client, eventsIndex, `{
		"mappings": {
			"properties": {
				"timestamp": { "type": "date" },
				"host.name": { "type": "keyword" },
				"user.name": { "type": "keyword" },
				"message":   { "type": "text" }
			}
		}
	}`)

	createIndex(client, alertsIndex, `{
		"mappings": {
			"properties": {
				"id":                { "type": "keyword" },
				"rule_id":           { "type": "keyword" },
				"rule_name":         { "type": "text" },
				"summary":           { "type": "text" },
				"severity":          { "type": "keyword" },
				"status":            { "type": "keyword" },
				"timestamp":         { "type": "date" },
				"start":             { "type": "date" },
				"end":               { "type": "date" },
				"suppression_count": { "type": "integer" },
				"suppression_terms": {
					"properties": {
						"field": { "type": "keyword" },
						"value": { "type": "keyword" }
					}
				},
				"event": { "type": "object", "enabled": false }
			}
		}
	}`)
}

func cleanupIndices(client *es.Client) {
	indices := []string{agentsIndex, actionResultsIndex, eventsIndex, alertsIndex}
	for _, idx := range indices {
		req := esapi.IndicesDeleteRequest{Index: []string{idx}}
		req.Do(context.Background(), client.ES)
	}
}

func createIndex(client *es.Client, index, mapping string) {
	req := esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader([]byte(mapping)),
	}
	res, err := req.Do(context.Background(), client.ES)
	Expect(err).NotTo(HaveOccurred())
	defer res.Body.Close()
	Expect(res.IsError()).To(BeFalse(), fmt.Sprintf("Failed to create index %s: %s", index, res.String()))
}

func indexDoc(client *es.Client, index, id string, doc map[string]interface{}) {
	data, err := json.Marshal(doc)
	Expect(err).NotTo(HaveOccurred())

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(context.Background(), client.ES)
	Expect(err).NotTo(HaveOccurred())
	defer res.Body.Close()
	Expect(res.IsError()).To(BeFalse())
}

func refreshIndex(client *es.Client, index string) {
	req := esapi.IndicesRefreshRequest{
		Index: []string{index},
	}
	res, err := req.Do(context.Background(), client.ES)
	Expect(err).NotTo(HaveOccurred())
	defer res.Body.Close()
}

func searchDocs(client *es.Client, index string, query map[string]interface{}) []map[string]interface{} {
	res, err := client.Search(context.Background(), index, query)
	Expect(err).NotTo(HaveOccurred())
	return res.Hits
}

func matchTerm(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"size": 100,
		"query": map[string]interface{}{
			"term": map[string]interface{}{field: value},
		},
	}
}
