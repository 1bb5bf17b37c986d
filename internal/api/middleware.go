package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/craftparty/emerald-market/internal/telemetry"
)

// SetupMiddleware configures all middleware for the application
func SetupMiddleware(app *fiber.App) {
	// Request ID middleware
	app.Use(requestid.New())

	// Recover middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
	}))

	// Tracing before logging so request logs carry the trace ID
	app.Use(tracingMiddleware())

	// Request logging
	app.Use(requestLogger())

	// Custom error handler
	app.Use(errorHandler())

	// Timing middleware
	app.Use(timingMiddleware())
}

// tracingMiddleware starts a span per request and installs it into the
// request context, so handlers, the database tracer and log enrichment
// all see the same trace.
func tracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.StartSpan(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.Path()),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}

		return err
	}
}

// requestLogger emits one structured log line per request
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		entry := telemetry.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.Locals(requestid.ConfigDefault.ContextKey),
		})

		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}

		return err
	}
}

// errorHandler creates a custom error handling middleware
func errorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			// Default to 500 Internal Server Error
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"
			errCode := ErrCodeInternalError

			// Check if it's a Fiber error
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			// Map common errors to appropriate codes
			switch code {
			case fiber.StatusNotFound:
				errCode = ErrCodeNotFound
			case fiber.StatusBadRequest:
				errCode = ErrCodeInvalidRequest
			case fiber.StatusRequestTimeout:
				errCode = ErrCodeTimeout
			case fiber.StatusTooManyRequests:
				errCode = ErrCodeRateLimited
			}

			telemetry.WithError(err).WithFields(map[string]interface{}{
				"path":   c.Path(),
				"method": c.Method(),
			}).Error("request error")

			// Return JSON error response
			return c.Status(code).JSON(NewErrorResponse(message, errCode))
		}
		return nil
	}
}

// timingMiddleware adds request timing headers
func timingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		c.Set("X-Response-Time", fmt.Sprintf("%d ms", duration.Milliseconds()))

		return err
	}
}

// ValidateAPIKey creates a middleware for API key validation
func ValidateAPIKey(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey != "" {
			// Get API key from header
			key := c.Get("X-API-Key")
			if key == "" {
				// Try Authorization header
				auth := c.Get("Authorization")
				if auth != "" && len(auth) > 7 && auth[:7] == "Bearer " {
					key = auth[7:]
				}
			}

			if key != apiKey {
				return c.Status(fiber.StatusUnauthorized).JSON(
					NewErrorResponse("Invalid or missing API key", "UNAUTHORIZED"),
				)
			}
		}
		return c.Next()
	}
}

// RateLimiter creates a simple in-memory rate limiter
func RateLimiter(requestsPerMinute int) fiber.Handler {
	type client struct {
		count     int
		lastReset time.Time
	}

	var mu sync.Mutex
	clients := make(map[string]*client)

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		now := time.Now()

		mu.Lock()

		cl, exists := clients[ip]
		if !exists {
			cl = &client{lastReset: now}
			clients[ip] = cl
		}

		// Reset counter if a minute has passed
		if now.Sub(cl.lastReset) > time.Minute {
			cl.count = 0
			cl.lastReset = now
		}

		if cl.count >= requestsPerMinute {
			mu.Unlock()
			return c.Status(fiber.StatusTooManyRequests).JSON(
				NewErrorResponse("Rate limit exceeded", ErrCodeRateLimited),
			)
		}

		cl.count++
		count := cl.count
		reset := cl.lastReset.Add(time.Minute).Unix()

		mu.Unlock()

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerMinute))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", requestsPerMinute-count))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		return c.Next()
	}
}
