package schema

import "time"

// ActionTypeUpdateTags tags action documents produced by bulk tag updates.
const ActionTypeUpdateTags = "UPDATE_TAGS"

// Action represents the aggregate document written to the actions index for
// each tag-update attempt. It is written once and never mutated.
type Action struct {
	ActionID string `json:"action_id"`
	Type     string `json:"type"`

	// Agents are the IDs targeted by this action, after excluding agents
	// on managed policies.
	Agents []string `json:"agents"`

	// Total is the effective number of agents covered by the action. When
	// the action was resolved from a query this reflects the engine's
	// authoritative count, which may be lower than the resolved count.
	Total int `json:"total"`

	Timestamp time.Time `json:"timestamp"`
}

// ActionResult represents the per-agent outcome document for an action.
// Error is empty on success.
type ActionResult struct {
	ActionID    string    `json:"action_id"`
	AgentID     string    `json:"agent_id"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

/*
// Mapping for the action results index
PUT fleetwatch-action-results
{
  "mappings": {
    "properties": {
      "action_id":    { "type": "keyword" },
      "type":         { "type": "keyword" },
      "agent_id":     { "type": "keyword" },
      "agents":       { "type": "keyword" },
      "total":        { "type": "integer" },
      "error":        { "type": "text" },
      "timestamp":    { "type": "date" },
      "completed_at": { "type": "date" }
    }
  }
}
*/
