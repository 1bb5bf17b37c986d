package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Client is a marketplace client for item listings. All methods are
// safe for concurrent use.
//
// Example:
//
//	client, err := sdk.NewClient(sdk.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	listing, err := client.GetListing(ctx, id)
//	if err != nil {
//	    if sdk.IsNotFound(err) {
//	        log.Println("listing gone")
//	    } else {
//	        log.Printf("lookup failed: %v", err)
//	    }
//	}
type Client interface {
	// GetListing retrieves a listing by ID.
	// Returns an error wrapping ErrNotFound if it does not exist.
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)

	// CreateListing creates a new listing and returns it with its
	// server-assigned ID, version and timestamps.
	CreateListing(ctx context.Context, req CreateListingRequest) (*Listing, error)

	// UpdateListing updates a listing. The request version must match
	// the current one; a stale version yields an APIError with
	// IsVersionMismatch() true.
	UpdateListing(ctx context.Context, id uuid.UUID, req UpdateListingRequest) (*Listing, error)

	// DeleteListing removes a listing. Deleting a listing that does not
	// exist is not an error.
	DeleteListing(ctx context.Context, id uuid.UUID) error

	// SearchListings returns a page of listings matching the query.
	SearchListings(ctx context.Context, query SearchListingsQuery) (*SearchListingsResponse, error)

	// Ping checks connectivity to the server.
	Ping(ctx context.Context) error

	// Close closes the client and releases all resources.
	// Close is safe to call multiple times.
	Close() error
}

// client is the concrete implementation of the Client interface
type client struct {
	transport *httpTransport
	config    *Config
	mu        sync.RWMutex
	closed    bool
}

// NewClient creates a new marketplace client with the provided
// configuration. If config is nil, default configuration values are
// used. The client maintains a connection pool and is safe for
// concurrent use by multiple goroutines.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithFallbackBaseURL("https://api.emerald.example").
//	    WithTimeout(10 * time.Second)
//	client, err := sdk.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	transport, err := newHTTPTransport(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &client{
		transport: transport,
		config:    config,
	}, nil
}

// GetListing retrieves a listing by ID
func (c *client) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	path := buildPath("/v1/listings/{0}", id.String())
	var listing Listing
	if err := c.transport.get(ctx, path, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// CreateListing creates a new listing
func (c *client) CreateListing(ctx context.Context, req CreateListingRequest) (*Listing, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if req.Item == "" {
		return nil, fmt.Errorf("item cannot be empty")
	}
	if req.Seller == "" {
		return nil, fmt.Errorf("seller cannot be empty")
	}

	var listing Listing
	if err := c.transport.post(ctx, "/v1/listings", req, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateListing updates an existing listing
func (c *client) UpdateListing(ctx context.Context, id uuid.UUID, req UpdateListingRequest) (*Listing, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	path := buildPath("/v1/listings/{0}", id.String())
	var listing Listing
	if err := c.transport.put(ctx, path, req, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// DeleteListing removes a listing
func (c *client) DeleteListing(ctx context.Context, id uuid.UUID) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	path := buildPath("/v1/listings/{0}", id.String())
	return c.transport.delete(ctx, path)
}

// SearchListings returns listings matching the query
func (c *client) SearchListings(ctx context.Context, query SearchListingsQuery) (*SearchListingsResponse, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	path := "/v1/listings" + encodeQuery(query)
	var resp SearchListingsResponse
	if err := c.transport.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks connectivity to the server
func (c *client) Ping(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	var resp HealthResponse
	if err := c.transport.get(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("server is not healthy: %s", resp.Status)
	}
	return nil
}

// Close closes the client and releases resources
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.close()
}

// checkClosed checks if the client is closed
func (c *client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	return nil
}
