package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/scheduler"
	"github.com/pugnascotia/fleetwatch/internal/store"
)

// SuppressionRuleHandler handles HTTP requests for suppression rule
// operations, including manually triggered runs.
type SuppressionRuleHandler struct {
	repo      store.SuppressionRuleRepository
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// NewSuppressionRuleHandler creates a new suppression rule handler.
func NewSuppressionRuleHandler(repo store.SuppressionRuleRepository, sched *scheduler.Scheduler, logger *slog.Logger) *SuppressionRuleHandler {
	return &SuppressionRuleHandler{
		repo:      repo,
		scheduler: sched,
		logger:    logger,
	}
}

// Create handles POST /v1/suppression-rules
// Creates a new suppression rule.
func (h *SuppressionRuleHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateSuppressionRuleRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	rule := req.ToSuppressionRule(uuid.New().String())
	if err := rule.Validate(); err != nil {
		h.logger.Debug("validation failed", "error", err)
		return ValidationError(c, err.Error())
	}

	if err := h.repo.Create(c.Context(), rule); err != nil {
		h.logger.Error("failed to create suppression rule", "error", err)
		return InternalError(c, "failed to create suppression rule")
	}

	h.logger.Info("created suppression rule", "id", rule.ID, "name", rule.Name)
	return Created(c, rule)
}

// List handles GET /v1/suppression-rules
// Returns all suppression rules.
func (h *SuppressionRuleHandler) List(c *fiber.Ctx) error {
	rules, err := h.repo.List(c.Context())
	if err != nil {
		h.logger.Error("failed to list suppression rules", "error", err)
		return InternalError(c, "failed to list suppression rules")
	}

	return Success(c, rules)
}

// GetByID handles GET /v1/suppression-rules/:id
// Returns a single suppression rule by ID.
func (h *SuppressionRuleHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	rule, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return NotFound(c, "suppression rule not found")
		}
		h.logger.Error("failed to get suppression rule", "id", id, "error", err)
		return InternalError(c, "failed to get suppression rule")
	}

	return Success(c, rule)
}

// Update handles PUT /v1/suppression-rules/:id
// Updates an existing suppression rule.
func (h *SuppressionRuleHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	var req domain.UpdateSuppressionRuleRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	rule, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return NotFound(c, "suppression rule not found")
		}
		h.logger.Error("failed to get suppression rule", "id", id, "error", err)
		return InternalError(c, "failed to get suppression rule")
	}

	req.ApplyTo(rule)
	if err := rule.Validate(); err != nil {
		h.logger.Debug("validation failed", "error", err)
		return ValidationError(c, err.Error())
	}

	if err := h.repo.Update(c.Context(), rule); err != nil {
		h.logger.Error("failed to update suppression rule", "id", id, "error", err)
		return InternalError(c, "failed to update suppression rule")
	}

	h.logger.Info("updated suppression rule", "id", rule.ID)
	return Success(c, rule)
}

// Delete handles DELETE /v1/suppression-rules/:id
// Deletes a suppression rule.
func (h *SuppressionRuleHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	if err := h.repo.Delete(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return NotFound(c, "suppression rule not found")
		}
		h.logger.Error("failed to delete suppression rule", "id", id, "error", err)
		return InternalError(c, "failed to delete suppression rule")
	}

	h.logger.Info("deleted suppression rule", "id", id)
	return NoContent(c)
}

// Run handles POST /v1/suppression-rules/:id/run
// Triggers one aggregation pass for the rule and returns its result. The
// run shares the scheduler's bucket history, so a manual run suppresses
// and records buckets exactly like a scheduled one.
func (h *SuppressionRuleHandler) Run(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	rule, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			return NotFound(c, "suppression rule not found")
		}
		h.logger.Error("failed to get suppression rule", "id", id, "error", err)
		return InternalError(c, "failed to get suppression rule")
	}

	result, err := h.scheduler.RunRule(c.Context(), rule)
	if err != nil {
		h.logger.Error("manual suppression run failed", "id", id, "error", err)
		return InternalError(c, "failed to run suppression rule")
	}

	return Success(c, result)
}
