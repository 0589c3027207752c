package domain

// TagUpdateJob is the queue payload for a tag update too large for one
// synchronous batch. The aggregate action record is persisted by the
// controller at hand-off time with the resolved total; the batch runner
// only appends per-agent results under the same action ID.
type TagUpdateJob struct {
	ActionID     string   `json:"action_id"`
	Kuery        string   `json:"kuery"`
	TagsToAdd    []string `json:"tags_to_add"`
	TagsToRemove []string `json:"tags_to_remove"`
	BatchSize    int      `json:"batch_size"`
	Total        int      `json:"total"`
}
