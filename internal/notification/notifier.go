// Package notification delivers alert notifications to downstream channels.
package notification

import (
	"context"
	"log/slog"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// Notifier is notified after a suppression run creates alerts.
type Notifier interface {
	// Notify reports that a run of the given rule created alertCount alerts.
	Notify(ctx context.Context, rule *domain.SuppressionRule, alertCount int) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// real channels (email, webhooks, pagers) in development and testing.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, rule *domain.SuppressionRule, alertCount int) error {
	n.logger.Info("alerts created",
		slog.String("rule_id", rule.ID),
		slog.String("rule_name", rule.Name),
		slog.Int("count", alertCount),
	)
	return nil
}
