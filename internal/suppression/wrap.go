package suppression

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/schema"
)

// AlertWrapper turns suppression buckets into alert documents. The wrapper
// is a collaborator so that the aggregation pass stays independent of the
// alert document shape.
type AlertWrapper interface {
	Wrap(rule *domain.SuppressionRule, bucket *domain.SuppressionBucket, now time.Time) *schema.Alert
}

// DefaultWrapper builds one active alert per bucket, carrying the bucket
// identity, event count, and representative event.
type DefaultWrapper struct{}

func NewDefaultWrapper() *DefaultWrapper {
	return &DefaultWrapper{}
}

func (w *DefaultWrapper) Wrap(rule *domain.SuppressionRule, bucket *domain.SuppressionBucket, now time.Time) *schema.Alert {
	terms := make([]schema.SuppressionTerm, 0, len(bucket.Terms))
	for _, term := range bucket.Terms {
		terms = append(terms, schema.SuppressionTerm{
			Field: term.Field,
			Value: term.Value,
		})
	}

	summary := rule.Summary
	if summary == "" {
		summary = fmt.Sprintf("%d events grouped by rule %q", bucket.Count, rule.Name)
	}

	return &schema.Alert{
		ID:               uuid.New().String(),
		RuleID:           rule.ID,
		RuleName:         rule.Name,
		Summary:          summary,
		Severity:         rule.Severity,
		Status:           schema.AlertStatusActive,
		Timestamp:        now,
		Start:            bucket.Start,
		End:              bucket.End,
		SuppressionTerms: terms,
		SuppressionCount: bucket.Count,
		Event:            bucket.Event,
	}
}
