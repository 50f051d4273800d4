package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/peerflow-api/internal/config"
	"github.com/noah-isme/peerflow-api/internal/handler"
	"github.com/noah-isme/peerflow-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReviewAssignmentHandler *handler.ReviewAssignmentHandler
	AggregationHandler      *handler.AggregationHandler
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ReviewAssignmentHandler != nil {
		reviewGroup := app.Group("/api/v1/review-assignment", jwtMiddleware)
		deps.ReviewAssignmentHandler.Register(reviewGroup)
	}

	if deps.AggregationHandler != nil {
		processingGroup := app.Group("/api/v1/processing", jwtMiddleware)
		deps.AggregationHandler.Register(processingGroup)
	}
}
