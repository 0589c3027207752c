package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/fleet"
)

// TagUpdateHandler handles HTTP requests for bulk agent tag updates.
type TagUpdateHandler struct {
	service *fleet.Service
	logger  *slog.Logger
}

// NewTagUpdateHandler creates a new tag update handler.
func NewTagUpdateHandler(service *fleet.Service, logger *slog.Logger) *TagUpdateHandler {
	return &TagUpdateHandler{
		service: service,
		logger:  logger,
	}
}

// UpdateTags handles POST /v1/agents/tags
// Applies tag changes to the selected agents. Selections larger than the
// batch size are accepted and completed out-of-band by the batch runner;
// the response then carries the action handle to track them by.
func (h *TagUpdateHandler) UpdateTags(c *fiber.Ctx) error {
	var req domain.TagUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	action, err := h.service.UpdateTagsWithRetries(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoSelection),
			errors.Is(err, domain.ErrBothSelection),
			errors.Is(err, domain.ErrNoTagChanges):
			return ValidationError(c, err.Error())
		}
		h.logger.Error("tag update failed", "error", err)
		return InternalError(c, "failed to update tags")
	}

	if len(action.Agents) == 0 && action.Total > 0 {
		// escalated to the batch runner
		return Accepted(c, action)
	}
	return Success(c, action)
}
