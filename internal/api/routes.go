package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/feedbackos/feedbackos-backend/internal/api/handlers"
	"github.com/feedbackos/feedbackos-backend/internal/database"
	"github.com/feedbackos/feedbackos-backend/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.Services, db *database.DB) {
	sessionHandler := handlers.NewSessionHandler(svc.Session)
	chatHandler := handlers.NewChatHandler(svc.Conversation)
	analyzeHandler := handlers.NewAnalyzeHandler(svc.Extraction)
	dashboardHandler := handlers.NewDashboardHandler(svc.Insights)

	api := app.Group("/api/v1")

	// Session management
	api.Post("/sessions", sessionHandler.Create)
	api.Get("/sessions/:id", sessionHandler.Get)
	api.Get("/sessions/:id/messages", sessionHandler.Messages)

	// Conversation turns (SSE + websocket)
	api.Post("/chat", chatHandler.SubmitTurn)
	api.Use("/chat/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/chat/ws", websocket.New(chatHandler.SubmitTurnWS))

	// Transcript extraction
	api.Post("/analyze", analyzeHandler.Analyze)

	// Dashboard aggregation
	api.Get("/dashboard/:orgId", dashboardHandler.Get)

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		if err := db.Ping(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"db":        "connected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
