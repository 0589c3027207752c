package domain

import "errors"

// AgentStatus represents the lifecycle state of a managed agent.
type AgentStatus string

const (
	// AgentStatusOnline indicates the agent is enrolled and checking in.
	AgentStatusOnline AgentStatus = "online"
	// AgentStatusOffline indicates the agent has missed check-ins.
	AgentStatusOffline AgentStatus = "offline"
	// AgentStatusInactive is a terminal state; inactive agents are never
	// targeted by scoped updates.
	AgentStatusInactive AgentStatus = "inactive"
	// AgentStatusUnenrolled is a terminal state; unenrolled agents are
	// never targeted by scoped updates.
	AgentStatusUnenrolled AgentStatus = "unenrolled"
)

// Validation errors for tag update requests.
var (
	ErrNoSelection   = errors.New("either agent ids or a query must be provided")
	ErrBothSelection = errors.New("agent ids and a query are mutually exclusive")
	ErrNoTagChanges  = errors.New("no tags to add or remove")
)

// TagUpdateRequest describes a bulk tag update against the fleet.
// The target is either an explicit list of agent IDs or a filter query;
// exactly one must be set.
type TagUpdateRequest struct {
	// AgentIDs explicitly selects the agents to update.
	AgentIDs []string `json:"agent_ids,omitempty"`

	// Kuery selects agents by filter query when AgentIDs is empty.
	Kuery string `json:"kuery,omitempty"`

	// BatchSize overrides the configured batch size for query selections.
	BatchSize int `json:"batch_size,omitempty"`

	// TagsToAdd and TagsToRemove are deduplicated before use. The caller
	// is responsible for keeping the two sets disjoint.
	TagsToAdd    []string `json:"tags_to_add"`
	TagsToRemove []string `json:"tags_to_remove"`

	// RetryCount is incremented by the caller on each version-conflict
	// retry of the same batch.
	RetryCount int `json:"retry_count,omitempty"`
}

// Normalize deduplicates the tag sets in place. Order within each set is
// preserved for the first occurrence of each tag.
func (r *TagUpdateRequest) Normalize() {
	r.TagsToAdd = dedupTags(r.TagsToAdd)
	r.TagsToRemove = dedupTags(r.TagsToRemove)
}

// Validate checks that the request selects a target and changes at least
// one tag.
func (r *TagUpdateRequest) Validate() error {
	if len(r.AgentIDs) == 0 && r.Kuery == "" {
		return ErrNoSelection
	}
	if len(r.AgentIDs) > 0 && r.Kuery != "" {
		return ErrBothSelection
	}
	if len(r.TagsToAdd) == 0 && len(r.TagsToRemove) == 0 {
		return ErrNoTagChanges
	}
	return nil
}

// ByQuery returns true when the request selects agents by filter query
// rather than by explicit IDs.
func (r *TagUpdateRequest) ByQuery() bool {
	return len(r.AgentIDs) == 0
}

// dedupTags removes duplicate tags, keeping first-occurrence order.
func dedupTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	result := tags[:0]
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
