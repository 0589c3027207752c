package schema

import "time"

// Alert statuses as stored in the alerts index.
const (
	AlertStatusActive = "ACTIVE"
	AlertStatusClosed = "CLOSED"
)

// SuppressionTerm is one (field, value) pair identifying the bucket an alert
// was generated from. Value may be a string, a number, or nil when the
// grouping field was missing on the matched documents.
type SuppressionTerm struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// Alert represents the document structure for the alerts index.
// One alert is created per newly observed suppression bucket.
type Alert struct {
	ID       string `json:"id"`
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Summary  string `json:"summary"`
	Severity string `json:"severity"`
	Status   string `json:"status"`

	// Timestamp is when the alert document was generated.
	Timestamp time.Time `json:"timestamp"`

	// Start and End bound the event timestamps folded into the bucket.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// SuppressionTerms identify the bucket this alert represents.
	SuppressionTerms []SuppressionTerm `json:"suppression_terms"`

	// SuppressionCount is the number of events folded into this alert.
	SuppressionCount int `json:"suppression_count"`

	// Event is the representative source document for the bucket.
	Event map[string]interface{} `json:"event,omitempty"`
}

/*
// Mapping for the alerts index
PUT fleetwatch-alerts
{
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
}
*/
