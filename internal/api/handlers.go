package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/craftparty/emerald-market/internal/cache"
	"github.com/craftparty/emerald-market/internal/database"
	"github.com/craftparty/emerald-market/internal/events"
	"github.com/craftparty/emerald-market/internal/telemetry"
)

var startTime = time.Now()

// ListingStore is the persistence surface the handlers need.
// *database.ListingRepository satisfies it.
type ListingStore interface {
	Get(ctx context.Context, id uuid.UUID) (*database.Listing, error)
	GetBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*database.Listing, error)
	Search(ctx context.Context, filter database.SearchFilter) ([]*database.Listing, int, error)
	Create(ctx context.Context, listing *database.Listing) (*database.Listing, error)
	Update(ctx context.Context, id uuid.UUID, listing *database.Listing, expectedVersion int) (*database.Listing, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventPublisher publishes listing change events. *events.Publisher
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.ListingEvent) error
	Health() error
}

// HealthChecker reports database connectivity
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains the HTTP request handlers
type Handler struct {
	store    ListingStore
	db       HealthChecker
	cache    cache.Cache
	events   EventPublisher
	cacheTTL time.Duration
}

// NewHandler creates a new handler instance. events may be nil when
// the service runs without a broker.
func NewHandler(store ListingStore, db HealthChecker, c cache.Cache, publisher EventPublisher, cacheTTL time.Duration) *Handler {
	return &Handler{
		store:    store,
		db:       db,
		cache:    c,
		events:   publisher,
		cacheTTL: cacheTTL,
	}
}

// GetListing handles GET /v1/listings/:id with a read-through cache.
func (h *Handler) GetListing(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("Invalid listing ID", ErrCodeInvalidRequest),
		)
	}

	key := cache.ListingKey(id.String())
	if data, cacheErr := h.cache.Get(ctx, key); cacheErr == nil {
		var listing database.Listing
		if jsonErr := json.Unmarshal(data, &listing); jsonErr == nil && !listing.IsExpired() {
			RecordCacheOperation("get", "hit")
			return c.JSON(&listing)
		}
		// Stale or corrupt entry, drop it and read through.
		_ = h.cache.Delete(ctx, key)
	}
	RecordCacheOperation("get", "miss")

	listing, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(
				NewErrorResponse("Listing not found", ErrCodeNotFound),
			)
		}
		telemetry.WithContext(ctx).WithError(err).Error("failed to get listing")
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("Failed to retrieve listing", ErrCodeInternalError),
		)
	}

	h.populateCache(listing)

	return c.JSON(listing)
}

// BatchGet handles POST /v1/listings/batch/get. Cached entries are
// served directly; the rest come from one database round trip.
func (h *Handler) BatchGet(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req BatchGetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("Invalid request body", ErrCodeInvalidRequest),
		)
	}

	if len(req.IDs) == 0 || len(req.IDs) > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("ids must contain between 1 and 100 entries", ErrCodeInvalidRequest),
		)
	}

	resp := &BatchGetResponse{
		Listings: make(map[string]*database.Listing, len(req.IDs)),
		Missing:  []string{},
	}

	var misses []uuid.UUID
	for _, id := range req.IDs {
		data, err := h.cache.Get(ctx, cache.ListingKey(id.String()))
		if err == nil {
			var listing database.Listing
			if jsonErr := json.Unmarshal(data, &listing); jsonErr == nil && !listing.IsExpired() {
				RecordCacheOperation("get", "hit")
				resp.Listings[id.String()] = &listing
				continue
			}
		}
		RecordCacheOperation("get", "miss")
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		found, err := h.store.GetBatch(ctx, misses)
		if err != nil {
			telemetry.WithContext(ctx).WithError(err).Error("failed to batch get listings")
			return c.Status(fiber.StatusInternalServerError).JSON(
				NewErrorResponse("Failed to retrieve listings", ErrCodeInternalError),
			)
		}

		for _, id := range misses {
			if listing, ok := found[id]; ok {
				resp.Listings[id.String()] = listing
				h.populateCache(listing)
			} else {
				resp.Missing = append(resp.Missing, id.String())
			}
		}
	}

	return c.JSON(resp)
}

// CreateListing handles POST /v1/listings
func (h *Handler) CreateListing(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("Invalid request body", ErrCodeInvalidRequest),
		)
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponseWithDetails("Invalid listing", ErrCodeInvalidRequest, err.Error()),
		)
	}

	created, err := h.store.Create(ctx, req.ToListing())
	if err != nil {
		telemetry.WithContext(ctx).WithError(err).Error("failed to create listing")
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("Failed to create listing", ErrCodeInternalError),
		)
	}

	RecordListingOperation("create", "success")
	h.populateCache(created)
	h.publishEvent(ctx, events.EventTypeCreated, created.ID, created)

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateListing handles PUT /v1/listings/:id with optimistic locking.
func (h *Handler) UpdateListing(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("Invalid listing ID", ErrCodeInvalidRequest),
		)
	}

	var req UpdateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("Invalid request body", ErrCodeInvalidRequest),
		)
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponseWithDetails("Invalid listing", ErrCodeInvalidRequest, err.Error()),
		)
	}

	updated, err := h.store.Update(ctx, id, req.ToListing(), req.Version)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(
				NewErrorResponse("Listing not found", ErrCodeNotFound),
			)
		case errors.Is(err, database.ErrVersionMismatch):
			RecordListingOperation("update", "conflict")
			return c.Status(fiber.StatusConflict).JSON(
				NewErrorResponse("Listing was modified by another request", ErrCodeVersionMismatch),
			)
		default:
			telemetry.WithContext(ctx).WithError(err).Error("failed to update listing")
			return c.Status(fiber.StatusInternalServerError).JSON(
				NewErrorResponse("Failed to update listing", ErrCodeInternalError),
			)
		}
	}

	RecordListingOperation("update", "success")

	// Invalidation is idempotent; readers rehydrate on the next miss.
	if err := h.cache.Delete(ctx, cache.ListingKey(id.String())); err != nil {
		telemetry.WithContext(ctx).WithError(err).Warn("failed to invalidate listing cache")
	}

	h.publishEvent(ctx, events.EventTypeUpdated, id, updated)

	return c.JSON(updated)
}

// DeleteListing handles DELETE /v1/listings/:id. Deleting an absent
// listing succeeds.
func (h *Handler) DeleteListing(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("Invalid listing ID", ErrCodeInvalidRequest),
		)
	}

	if err := h.store.Delete(ctx, id); err != nil {
		telemetry.WithContext(ctx).WithError(err).Error("failed to delete listing")
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("Failed to delete listing", ErrCodeInternalError),
		)
	}

	RecordListingOperation("delete", "success")

	if err := h.cache.Delete(ctx, cache.ListingKey(id.String())); err != nil {
		telemetry.WithContext(ctx).WithError(err).Warn("failed to invalidate listing cache")
	}

	h.publishEvent(ctx, events.EventTypeDeleted, id, nil)

	return c.SendStatus(fiber.StatusNoContent)
}

// SearchListings handles GET /v1/listings
func (h *Handler) SearchListings(c *fiber.Ctx) error {
	ctx := c.UserContext()

	filter := database.SearchFilter{
		Item:     c.Query("item"),
		Seller:   c.Query("seller"),
		MaxPrice: c.QueryInt("max_price", 0),
		Limit:    c.QueryInt("limit", 0),
		Offset:   c.QueryInt("offset", 0),
	}
	filter.Normalize()

	listings, total, err := h.store.Search(ctx, filter)
	if err != nil {
		telemetry.WithContext(ctx).WithError(err).Error("failed to search listings")
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("Failed to search listings", ErrCodeInternalError),
		)
	}

	if listings == nil {
		listings = []*database.Listing{}
	}

	return c.JSON(&SearchResponse{
		Listings: listings,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// Health handles the health check endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()

	checks := make(map[string]string)
	healthy := true

	if err := h.db.Health(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if err := h.cache.Ping(ctx); err != nil {
		checks["valkey"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["valkey"] = "healthy"
	}

	if h.events != nil {
		if err := h.events.Health(); err != nil {
			checks["nats"] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks["nats"] = "healthy"
		}
	} else {
		checks["nats"] = "disabled"
	}

	status := "healthy"
	statusCode := fiber.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
		UpdateHealthMetric(0)
	} else {
		UpdateHealthMetric(1)
	}

	return c.Status(statusCode).JSON(&HealthResponse{
		Status:  status,
		Service: "emerald-market-api",
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
		Checks:  checks,
	})
}

// populateCache writes a listing into the cache off the request path.
func (h *Handler) populateCache(listing *database.Listing) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(listing)
		if err != nil {
			return
		}

		if err := h.cache.Set(ctx, cache.ListingKey(listing.ID.String()), data, h.cacheTTL); err != nil {
			telemetry.WithError(err).Warn("failed to populate listing cache")
		}
	}()
}

// publishEvent emits a listing change event. Publish failures are
// logged, not surfaced; the write already committed.
func (h *Handler) publishEvent(ctx context.Context, eventType events.EventType, id uuid.UUID, listing *database.Listing) {
	if h.events == nil {
		return
	}

	event := events.NewListingEvent(eventType, id, listing)
	if err := h.events.Publish(ctx, event); err != nil {
		telemetry.WithContext(ctx).WithError(err).
			WithField("subject", event.Subject()).
			Error("failed to publish listing event")
	}
}
