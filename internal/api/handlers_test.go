package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftparty/emerald-market/internal/cache"
	"github.com/craftparty/emerald-market/internal/database"
	"github.com/craftparty/emerald-market/internal/events"
)

type stubStore struct {
	getFn      func(ctx context.Context, id uuid.UUID) (*database.Listing, error)
	getBatchFn func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*database.Listing, error)
	searchFn func(ctx context.Context, filter database.SearchFilter) ([]*database.Listing, int, error)
	createFn func(ctx context.Context, listing *database.Listing) (*database.Listing, error)
	updateFn func(ctx context.Context, id uuid.UUID, listing *database.Listing, expectedVersion int) (*database.Listing, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubStore) Get(ctx context.Context, id uuid.UUID) (*database.Listing, error) {
	if s.getFn == nil {
		return nil, database.ErrNotFound
	}
	return s.getFn(ctx, id)
}

func (s *stubStore) GetBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*database.Listing, error) {
	if s.getBatchFn == nil {
		return map[uuid.UUID]*database.Listing{}, nil
	}
	return s.getBatchFn(ctx, ids)
}

func (s *stubStore) Search(ctx context.Context, filter database.SearchFilter) ([]*database.Listing, int, error) {
	if s.searchFn == nil {
		return nil, 0, nil
	}
	return s.searchFn(ctx, filter)
}

func (s *stubStore) Create(ctx context.Context, listing *database.Listing) (*database.Listing, error) {
	if s.createFn == nil {
		return nil, errors.New("unexpected Create")
	}
	return s.createFn(ctx, listing)
}

func (s *stubStore) Update(ctx context.Context, id uuid.UUID, listing *database.Listing, expectedVersion int) (*database.Listing, error) {
	if s.updateFn == nil {
		return nil, errors.New("unexpected Update")
	}
	return s.updateFn(ctx, id, listing, expectedVersion)
}

func (s *stubStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

type stubCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	pingErr error
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value, ok := c.data[key]; ok {
		return value, nil
	}
	return nil, cache.ErrKeyNotFound
}

func (c *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *stubCache) Ping(ctx context.Context) error { return c.pingErr }
func (c *stubCache) Close() error                   { return nil }

func (c *stubCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type stubPublisher struct {
	mu        sync.Mutex
	published []*events.ListingEvent
	healthErr error
}

func (p *stubPublisher) Publish(ctx context.Context, event *events.ListingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

func (p *stubPublisher) Health() error { return p.healthErr }

func (p *stubPublisher) snapshot() []*events.ListingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.ListingEvent(nil), p.published...)
}

type stubDB struct {
	err error
}

func (d *stubDB) Health(ctx context.Context) error { return d.err }

func newTestApp(h *Handler) *fiber.App {
	app := fiber.New()
	SetupRoutes(app, h, &Config{RateLimitPerMinute: 1000, MetricsPath: "/metrics"})
	return app
}

func testListing() *database.Listing {
	return &database.Listing{
		ID:            uuid.New(),
		Item:          "minecraft:diamond_sword",
		Quantity:      1,
		PriceEmeralds: 32,
		Seller:        "steve",
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetListingCacheHit(t *testing.T) {
	listing := testListing()
	c := newStubCache()
	data, err := json.Marshal(listing)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), cache.ListingKey(listing.ID.String()), data, 0))

	store := &stubStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*database.Listing, error) {
			t.Error("store should not be hit on cache hit")
			return nil, database.ErrNotFound
		},
	}

	h := NewHandler(store, &stubDB{}, c, nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/listings/"+listing.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got database.Listing
	decodeBody(t, resp, &got)
	assert.Equal(t, listing.ID, got.ID)
	assert.Equal(t, listing.Item, got.Item)
}

func TestGetListingCacheMissReadsStore(t *testing.T) {
	listing := testListing()
	c := newStubCache()

	store := &stubStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*database.Listing, error) {
			return listing, nil
		},
	}

	h := NewHandler(store, &stubDB{}, c, nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/listings/"+listing.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The cache is repopulated off the request path.
	assert.Eventually(t, func() bool {
		return c.has(cache.ListingKey(listing.ID.String()))
	}, time.Second, 10*time.Millisecond)
}

func TestGetListingNotFound(t *testing.T) {
	h := NewHandler(&stubStore{}, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/listings/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, ErrCodeNotFound, errResp.Code)
}

func TestGetListingInvalidID(t *testing.T) {
	h := NewHandler(&stubStore{}, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/listings/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, ErrCodeInvalidRequest, errResp.Code)
}

func TestCreateListing(t *testing.T) {
	publisher := &stubPublisher{}
	store := &stubStore{
		createFn: func(ctx context.Context, listing *database.Listing) (*database.Listing, error) {
			created := *listing
			created.ID = uuid.New()
			created.Version = 1
			return &created, nil
		},
	}

	h := NewHandler(store, &stubDB{}, newStubCache(), publisher, time.Minute)
	app := newTestApp(h)

	req := jsonRequest(http.MethodPost, "/v1/listings", CreateListingRequest{
		Item:          "minecraft:emerald_block",
		Quantity:      8,
		PriceEmeralds: 72,
		Seller:        "alex",
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created database.Listing
	decodeBody(t, resp, &created)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, 1, created.Version)

	published := publisher.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeCreated, published[0].Type)
	assert.Equal(t, created.ID, published[0].ListingID)
}

func TestCreateListingValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateListingRequest
	}{
		{"missing item", CreateListingRequest{Quantity: 1, PriceEmeralds: 1, Seller: "steve"}},
		{"missing seller", CreateListingRequest{Item: "minecraft:dirt", Quantity: 1, PriceEmeralds: 1}},
		{"zero quantity", CreateListingRequest{Item: "minecraft:dirt", PriceEmeralds: 1, Seller: "steve"}},
		{"zero price", CreateListingRequest{Item: "minecraft:dirt", Quantity: 1, Seller: "steve"}},
	}

	h := NewHandler(&stubStore{}, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/listings", tt.req))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errResp ErrorResponse
			decodeBody(t, resp, &errResp)
			assert.Equal(t, ErrCodeInvalidRequest, errResp.Code)
		})
	}
}

func TestBatchGetMixesCacheAndStore(t *testing.T) {
	cached := testListing()
	stored := testListing()
	missing := uuid.New()

	c := newStubCache()
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), cache.ListingKey(cached.ID.String()), data, 0))

	store := &stubStore{
		getBatchFn: func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*database.Listing, error) {
			// Only the uncached IDs reach the store.
			assert.ElementsMatch(t, []uuid.UUID{stored.ID, missing}, ids)
			return map[uuid.UUID]*database.Listing{stored.ID: stored}, nil
		},
	}

	h := NewHandler(store, &stubDB{}, c, nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/listings/batch/get", BatchGetRequest{
		IDs: []uuid.UUID{cached.ID, stored.ID, missing},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result BatchGetResponse
	decodeBody(t, resp, &result)
	assert.Len(t, result.Listings, 2)
	assert.Contains(t, result.Listings, cached.ID.String())
	assert.Contains(t, result.Listings, stored.ID.String())
	assert.Equal(t, []string{missing.String()}, result.Missing)
}

func TestBatchGetValidatesSize(t *testing.T) {
	h := NewHandler(&stubStore{}, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/listings/batch/get", BatchGetRequest{}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateListingVersionMismatch(t *testing.T) {
	store := &stubStore{
		updateFn: func(ctx context.Context, id uuid.UUID, listing *database.Listing, expectedVersion int) (*database.Listing, error) {
			return nil, database.ErrVersionMismatch
		},
	}

	h := NewHandler(store, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	req := jsonRequest(http.MethodPut, "/v1/listings/"+uuid.NewString(), UpdateListingRequest{
		Quantity:      2,
		PriceEmeralds: 10,
		Version:       3,
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, ErrCodeVersionMismatch, errResp.Code)
}

func TestUpdateListingInvalidatesCache(t *testing.T) {
	listing := testListing()
	c := newStubCache()
	data, err := json.Marshal(listing)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), cache.ListingKey(listing.ID.String()), data, 0))

	publisher := &stubPublisher{}
	store := &stubStore{
		updateFn: func(ctx context.Context, id uuid.UUID, l *database.Listing, expectedVersion int) (*database.Listing, error) {
			updated := *listing
			updated.Quantity = l.Quantity
			updated.Version = expectedVersion + 1
			return &updated, nil
		},
	}

	h := NewHandler(store, &stubDB{}, c, publisher, time.Minute)
	app := newTestApp(h)

	req := jsonRequest(http.MethodPut, "/v1/listings/"+listing.ID.String(), UpdateListingRequest{
		Quantity:      5,
		PriceEmeralds: listing.PriceEmeralds,
		Version:       1,
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated database.Listing
	decodeBody(t, resp, &updated)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, 2, updated.Version)

	assert.False(t, c.has(cache.ListingKey(listing.ID.String())))

	published := publisher.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeUpdated, published[0].Type)
}

func TestUpdateListingNotFound(t *testing.T) {
	store := &stubStore{
		updateFn: func(ctx context.Context, id uuid.UUID, listing *database.Listing, expectedVersion int) (*database.Listing, error) {
			return nil, database.ErrNotFound
		},
	}

	h := NewHandler(store, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	req := jsonRequest(http.MethodPut, "/v1/listings/"+uuid.NewString(), UpdateListingRequest{
		Quantity:      1,
		PriceEmeralds: 1,
		Version:       1,
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteListing(t *testing.T) {
	listing := testListing()
	c := newStubCache()
	data, err := json.Marshal(listing)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), cache.ListingKey(listing.ID.String()), data, 0))

	publisher := &stubPublisher{}
	h := NewHandler(&stubStore{}, &stubDB{}, c, publisher, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/v1/listings/"+listing.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.False(t, c.has(cache.ListingKey(listing.ID.String())))

	published := publisher.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeDeleted, published[0].Type)
	assert.Equal(t, listing.ID, published[0].ListingID)
	assert.Nil(t, published[0].Listing)
}

func TestSearchListings(t *testing.T) {
	var gotFilter database.SearchFilter
	listing := testListing()

	store := &stubStore{
		searchFn: func(ctx context.Context, filter database.SearchFilter) ([]*database.Listing, int, error) {
			gotFilter = filter
			return []*database.Listing{listing}, 1, nil
		},
	}

	h := NewHandler(store, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/v1/listings?item=minecraft:diamond_sword&seller=steve&max_price=40&limit=500&offset=-3", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "minecraft:diamond_sword", gotFilter.Item)
	assert.Equal(t, "steve", gotFilter.Seller)
	assert.Equal(t, 40, gotFilter.MaxPrice)
	assert.Equal(t, 200, gotFilter.Limit)
	assert.Equal(t, 0, gotFilter.Offset)

	var result SearchResponse
	decodeBody(t, resp, &result)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 200, result.Limit)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, listing.ID, result.Listings[0].ID)
}

func TestSearchListingsEmptyPage(t *testing.T) {
	h := NewHandler(&stubStore{}, &stubDB{}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/listings", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result SearchResponse
	decodeBody(t, resp, &result)
	assert.NotNil(t, result.Listings)
	assert.Empty(t, result.Listings)
	assert.Equal(t, 0, result.Total)
}

func TestHealthHealthy(t *testing.T) {
	h := NewHandler(&stubStore{}, &stubDB{}, newStubCache(), &stubPublisher{}, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	decodeBody(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["database"])
	assert.Equal(t, "healthy", health.Checks["valkey"])
	assert.Equal(t, "healthy", health.Checks["nats"])
}

func TestHealthUnhealthyDatabase(t *testing.T) {
	h := NewHandler(&stubStore{}, &stubDB{err: errors.New("connection refused")}, newStubCache(), nil, time.Minute)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health HealthResponse
	decodeBody(t, resp, &health)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Contains(t, health.Checks["database"], "unhealthy")
	assert.Equal(t, "disabled", health.Checks["nats"])
}
