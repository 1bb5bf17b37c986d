package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, handler *Handler, cfg *Config) {
	// API v1 group
	v1 := app.Group("/v1")

	// Apply metrics middleware to all v1 routes
	v1.Use(PrometheusMetricsMiddleware())

	// Apply rate limiting
	v1.Use(RateLimiter(cfg.RateLimitPerMinute))

	// Apply API key validation if configured
	if cfg.APIKey != "" {
		v1.Use(ValidateAPIKey(cfg.APIKey))
	}

	// Listing endpoints
	listings := v1.Group("/listings")

	listings.Get("/", handler.SearchListings)
	listings.Post("/", handler.CreateListing)
	listings.Post("/batch/get", handler.BatchGet)
	listings.Get("/:id", handler.GetListing)
	listings.Put("/:id", handler.UpdateListing)
	listings.Delete("/:id", handler.DeleteListing)

	// Health and metrics endpoints (no auth required)
	app.Get("/health", handler.Health)
	app.Get(cfg.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "emerald-market-api",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": fiber.Map{
				"listings": fiber.Map{
					"search": "GET /v1/listings",
					"create": "POST /v1/listings",
					"get":    "GET /v1/listings/:id",
					"batch":  "POST /v1/listings/batch/get",
					"update": "PUT /v1/listings/:id",
					"delete": "DELETE /v1/listings/:id",
				},
				"health":  "GET /health",
				"metrics": "GET " + cfg.MetricsPath,
			},
		})
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("Endpoint not found", ErrCodeNotFound),
		)
	})
}
