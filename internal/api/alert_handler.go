package api

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/es"
)

// AlertSearcher is the search surface the alert handler needs.
type AlertSearcher interface {
	Search(ctx context.Context, index string, query map[string]interface{}) (*es.SearchResult, error)
}

// AlertHandler handles HTTP requests for alert operations. Alerts are
// read-only through the API; they are only created by suppression runs.
type AlertHandler struct {
	engine AlertSearcher
	cfg    *config.SuppressionConfig
	logger *slog.Logger
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(engine AlertSearcher, cfg *config.SuppressionConfig, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
}

// List handles GET /v1/alerts
// Returns alerts matching query parameters, newest first.
func (h *AlertHandler) List(c *fiber.Ctx) error {
	var filters []interface{}
	if ruleID := c.Query("rule_id"); ruleID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"rule_id": ruleID},
		})
	}
	if status := c.Query("status"); status != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = l
		}
	}

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	query := map[string]interface{}{
		"size":  limit,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}

	res, err := h.engine.Search(c.Context(), h.cfg.AlertsIndex, query)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		return InternalError(c, "failed to list alerts")
	}

	return Success(c, res.Hits)
}
