package domain

import (
	"errors"
	"time"
)

// SuppressionRule defines a grouped alert-generation pass: which events to
// aggregate, the fields to bucket them by, and how far back each run looks.
type SuppressionRule struct {
	// ID is the unique identifier for this rule.
	ID string `json:"id"`

	// Name is a human-readable name for the rule.
	Name string `json:"name"`

	// Index is the event index each run searches.
	Index string `json:"index"`

	// GroupByFields are the fields events are bucketed by. Must be
	// non-empty.
	GroupByFields []string `json:"group_by_fields"`

	// TimeWindowMinutes is how far back each run's search window extends.
	TimeWindowMinutes int `json:"time_window_minutes"`

	// MaxSignals caps the number of buckets (and therefore alerts) per
	// run. Zero means use the configured default.
	MaxSignals int `json:"max_signals"`

	// Filter is an optional raw query DSL fragment ANDed into each run's
	// search.
	Filter string `json:"filter,omitempty"`

	// Severity and Summary seed the generated alert documents.
	Severity string `json:"severity"`
	Summary  string `json:"summary"`

	// Enabled controls whether the scheduler runs this rule.
	Enabled bool `json:"enabled"`

	// CreatedAt is when the rule was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the rule was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validation errors for SuppressionRule.
var (
	ErrEmptyRuleName      = errors.New("name is required")
	ErrEmptyRuleIndex     = errors.New("index is required")
	ErrEmptyGroupByFields = errors.New("group_by_fields must be provided for grouping")
	ErrInvalidTimeWindow  = errors.New("time_window_minutes must be positive")
	ErrRuleNotFound       = errors.New("suppression rule not found")
)

// Validate checks if the rule has all required fields with valid values.
func (r *SuppressionRule) Validate() error {
	if r.Name == "" {
		return ErrEmptyRuleName
	}
	if r.Index == "" {
		return ErrEmptyRuleIndex
	}
	if len(r.GroupByFields) == 0 {
		return ErrEmptyGroupByFields
	}
	if r.TimeWindowMinutes <= 0 {
		return ErrInvalidTimeWindow
	}
	return nil
}

// TimeWindow returns the rule's window as a time.Duration.
func (r *SuppressionRule) TimeWindow() time.Duration {
	return time.Duration(r.TimeWindowMinutes) * time.Minute
}

// CreateSuppressionRuleRequest represents the input for creating a rule.
type CreateSuppressionRuleRequest struct {
	Name              string   `json:"name"`
	Index             string   `json:"index"`
	GroupByFields     []string `json:"group_by_fields"`
	TimeWindowMinutes int      `json:"time_window_minutes"`
	MaxSignals        int      `json:"max_signals"`
	Filter            string   `json:"filter"`
	Severity          string   `json:"severity"`
	Summary           string   `json:"summary"`
}

// ToSuppressionRule converts the request to a SuppressionRule entity.
func (r *CreateSuppressionRuleRequest) ToSuppressionRule(id string) *SuppressionRule {
	now := time.Now().UTC()
	return &SuppressionRule{
		ID:                id,
		Name:              r.Name,
		Index:             r.Index,
		GroupByFields:     r.GroupByFields,
		TimeWindowMinutes: r.TimeWindowMinutes,
		MaxSignals:        r.MaxSignals,
		Filter:            r.Filter,
		Severity:          r.Severity,
		Summary:           r.Summary,
		Enabled:           true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// UpdateSuppressionRuleRequest represents the input for updating a rule.
type UpdateSuppressionRuleRequest struct {
	Name              string   `json:"name"`
	Index             string   `json:"index"`
	GroupByFields     []string `json:"group_by_fields"`
	TimeWindowMinutes int      `json:"time_window_minutes"`
	MaxSignals        int      `json:"max_signals"`
	Filter            string   `json:"filter"`
	Severity          string   `json:"severity"`
	Summary           string   `json:"summary"`
	Enabled           bool     `json:"enabled"`
}

// ApplyTo updates an existing SuppressionRule with the request values.
func (r *UpdateSuppressionRuleRequest) ApplyTo(rule *SuppressionRule) {
	rule.Name = r.Name
	rule.Index = r.Index
	rule.GroupByFields = r.GroupByFields
	rule.TimeWindowMinutes = r.TimeWindowMinutes
	rule.MaxSignals = r.MaxSignals
	rule.Filter = r.Filter
	rule.Severity = r.Severity
	rule.Summary = r.Summary
	rule.Enabled = r.Enabled
	rule.UpdatedAt = time.Now().UTC()
}
