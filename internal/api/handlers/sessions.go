package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/feedbackos/feedbackos-backend/internal/services"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	sessions *services.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req struct {
		LocationID string `json:"locationId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if _, err := uuid.Parse(req.LocationID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "locationId must be a valid UUID",
		})
	}

	sctx, err := h.sessions.Create(c.Context(), req.LocationID)
	if err != nil {
		if errors.Is(err, services.ErrLocationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Location not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(sctx)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session id must be a valid UUID",
		})
	}

	session, err := h.sessions.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"sessionId":   session.ID,
		"locationId":  session.LocationID,
		"agentState":  session.AgentState,
		"status":      session.Status,
		"isSensitive": session.IsSensitive,
		"startedAt":   session.StartedAt,
		"endedAt":     session.EndedAt,
	})
}

// Messages handles GET /api/v1/sessions/:id/messages
func (h *SessionHandler) Messages(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session id must be a valid UUID",
		})
	}

	messages, err := h.sessions.Messages(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	out := make([]fiber.Map, 0, len(messages))
	for _, m := range messages {
		out = append(out, fiber.Map{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"agentState": m.AgentState,
			"createdAt":  m.CreatedAt,
		})
	}

	return c.JSON(out)
}
