package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/feedbackos/feedbackos-backend/internal/services"
)

// AnalyzeHandler triggers transcript extraction for a completed session
type AnalyzeHandler struct {
	extraction *services.ExtractionService
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(extraction *services.ExtractionService) *AnalyzeHandler {
	return &AnalyzeHandler{extraction: extraction}
}

// Analyze handles POST /api/v1/analyze
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if _, err := uuid.Parse(req.SessionID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sessionId must be a valid UUID",
		})
	}

	result, err := h.extraction.Analyze(c.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if result.Skipped {
		return c.JSON(fiber.Map{"skipped": true, "reason": result.Reason})
	}
	return c.JSON(fiber.Map{"success": true, "insightId": result.InsightID})
}
