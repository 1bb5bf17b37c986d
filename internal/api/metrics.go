package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emeraldmarket_request_duration_seconds",
		Help:    "Request duration in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method", "endpoint", "status"})

	// Cache metrics
	cacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emeraldmarket_cache_operations_total",
		Help: "Total number of listing cache operations",
	}, []string{"operation", "result"})

	// Listing metrics
	listingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emeraldmarket_listing_operations_total",
		Help: "Total number of listing write operations",
	}, []string{"operation", "result"})

	// System health
	healthStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emeraldmarket_health_status",
		Help: "Health status (1=healthy, 0=unhealthy)",
	})
)

// PrometheusMetricsMiddleware tracks request metrics for Prometheus
func PrometheusMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		requestDuration.WithLabelValues(
			c.Method(),
			c.Path(),
			status,
		).Observe(duration)

		return err
	}
}

// RecordCacheOperation records a cache operation metric
func RecordCacheOperation(operation, result string) {
	cacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordListingOperation records a listing write metric
func RecordListingOperation(operation, result string) {
	listingOperations.WithLabelValues(operation, result).Inc()
}

// UpdateHealthMetric updates the health status metric
func UpdateHealthMetric(status float64) {
	healthStatus.Set(status)
}
