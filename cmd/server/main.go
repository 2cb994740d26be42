package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/feedbackos/feedbackos-backend/internal/api"
	"github.com/feedbackos/feedbackos-backend/internal/config"
	"github.com/feedbackos/feedbackos-backend/internal/database"
	"github.com/feedbackos/feedbackos-backend/internal/providers/factory"
	"github.com/feedbackos/feedbackos-backend/internal/repository/postgres"
	"github.com/feedbackos/feedbackos-backend/internal/services"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	// Single long-lived generation client, injected into the services.
	provider, err := factory.New(cfg.Generation)
	if err != nil {
		logger.WithError(err).Fatal("failed to create generation provider")
	}
	logger.WithField("provider", provider.Name()).Info("generation provider ready")

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "FeedbackOS Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: getOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Initialize repositories
	sessionRepo := postgres.NewSessionRepository(db.DB)
	messageRepo := postgres.NewMessageRepository(db.DB)
	locationRepo := postgres.NewLocationRepository(db.DB)
	insightRepo := postgres.NewInsightRepository(db.DB)

	// Initialize services
	svc := services.NewServices(
		provider,
		cfg.Generation,
		sessionRepo,
		messageRepo,
		locationRepo,
		insightRepo,
		logger,
	)

	// Setup routes
	api.SetupRoutes(app, svc, db)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithField("addr", addr).Info("feedbackos backend starting")
	if err := app.Listen(addr); err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func getOrigins() string {
	origins := os.Getenv("FEEDBACKOS_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:3000,http://localhost:5173"
	}
	return origins
}
