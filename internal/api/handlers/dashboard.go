package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/feedbackos/feedbackos-backend/internal/services"
)

// DashboardHandler serves aggregated insight data for an organization
type DashboardHandler struct {
	insights *services.InsightsService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(insights *services.InsightsService) *DashboardHandler {
	return &DashboardHandler{insights: insights}
}

// Get handles GET /api/v1/dashboard/:orgId
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	orgID := c.Params("orgId")
	if _, err := uuid.Parse(orgID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "orgId must be a valid UUID",
		})
	}

	dashboard, err := h.insights.Dashboard(c.Context(), orgID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(dashboard)
}
