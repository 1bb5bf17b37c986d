package sdk

import (
	"time"
)

// Config holds the configuration for the marketplace client.
// All fields are optional and have sensible defaults.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := sdk.DefaultConfig().
//	    WithFallbackBaseURL("https://api.emerald.example").
//	    WithTimeout(10 * time.Second).
//	    WithRetries(5)
//
//	client, err := sdk.NewClient(config)
type Config struct {
	// Addresses holds the per-environment base URLs. Request URLs are
	// resolved through these at request time; the client never pins a
	// base URL at construction.
	Addresses AddressConfig

	// Timeout is the HTTP request timeout.
	// This includes connection time, any redirects, and reading the response body.
	// Default: 30s
	Timeout time.Duration

	// RetryConfig holds retry-related settings.
	// Configures automatic retry behavior for failed requests.
	RetryConfig RetryConfig

	// TransportConfig holds HTTP transport settings.
	// Configures connection pooling and keep-alive behavior.
	TransportConfig TransportConfig

	// Headers are custom headers to include in all requests.
	// Useful for authentication tokens, correlation IDs, etc.
	// Example: {"X-API-Key": "secret"}
	Headers map[string]string

	// detectorOverride replaces ambient runtime detection, tests only.
	detectorOverride func() RuntimeContext
}

// RetryConfig holds retry-related configuration for automatic request
// retries. The SDK uses exponential backoff with jitter.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// Set to 0 to disable retries.
	// Default: 3
	MaxRetries int

	// InitialInterval is the initial retry interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry interval.
	// Default: 5s
	MaxInterval time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64
}

// TransportConfig holds HTTP transport configuration for connection
// pooling. Only meaningful for native builds; the wasm transport
// delegates pooling to the browser.
type TransportConfig struct {
	// MaxIdleConns controls the maximum number of idle connections
	// across all hosts. Zero means no limit.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost controls the maximum connections per host.
	// Default: 10
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain
	// idle before closing itself. Zero means no limit.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults suitable for
// local development:
//   - Addresses: DefaultAddressConfig (local test and dev servers)
//   - Timeout: 30 seconds
//   - Retries: 3 attempts with exponential backoff
//   - Connection pooling: 100 idle connections, 10 per host
func DefaultConfig() *Config {
	return &Config{
		Addresses: DefaultAddressConfig(),
		Timeout:   30 * time.Second,
		RetryConfig: RetryConfig{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
		},
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Headers: make(map[string]string),
	}
}

// WithAddresses replaces the whole per-environment address table.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithAddresses(sdk.AddressConfig{
//	        TestBaseURL:     "http://localhost:7410",
//	        DevBaseURL:      "http://localhost:3000",
//	        ProdBaseURL:     "",
//	        FallbackBaseURL: "https://api.emerald.example",
//	    })
func (c *Config) WithAddresses(addresses AddressConfig) *Config {
	c.Addresses = addresses
	return c
}

// WithFallbackBaseURL sets the base URL used for all server-side
// requests and for unrecognized environments. Must be absolute.
func (c *Config) WithFallbackBaseURL(url string) *Config {
	c.Addresses.FallbackBaseURL = url
	return c
}

// WithTimeout sets the request timeout for all operations.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRetries sets the maximum number of retry attempts for failed
// requests. Set to 0 to disable automatic retries.
func (c *Config) WithRetries(maxRetries int) *Config {
	c.RetryConfig.MaxRetries = maxRetries
	return c
}

// WithHeader adds a custom header to be sent with all requests.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithHeader("X-API-Key", "your-api-key")
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithRuntimeDetection replaces ambient runtime detection with the
// given provider. Intended for tests that need to exercise specific
// runtime contexts without mutating process state.
func (c *Config) WithRuntimeDetection(detect func() RuntimeContext) *Config {
	c.detectorOverride = detect
	return c
}

// Validate validates the configuration and sets defaults for missing
// values. This is called automatically by NewClient.
//
// Returns an error if the address table is invalid (e.g. an empty or
// relative fallback base URL).
func (c *Config) Validate() error {
	if err := c.Addresses.Validate(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryConfig.MaxRetries < 0 {
		c.RetryConfig.MaxRetries = 0
	}
	if c.RetryConfig.InitialInterval <= 0 {
		c.RetryConfig.InitialInterval = 100 * time.Millisecond
	}
	if c.RetryConfig.MaxInterval <= 0 {
		c.RetryConfig.MaxInterval = 5 * time.Second
	}
	if c.RetryConfig.Multiplier <= 1 {
		c.RetryConfig.Multiplier = 2.0
	}
	if c.TransportConfig.MaxIdleConns <= 0 {
		c.TransportConfig.MaxIdleConns = 100
	}
	if c.TransportConfig.MaxConnsPerHost <= 0 {
		c.TransportConfig.MaxConnsPerHost = 10
	}
	if c.TransportConfig.IdleConnTimeout <= 0 {
		c.TransportConfig.IdleConnTimeout = 90 * time.Second
	}
	return nil
}

// resolverOptions translates the config's detector override into
// resolver options.
func (c *Config) resolverOptions() []ResolverOption {
	if c.detectorOverride == nil {
		return nil
	}
	return []ResolverOption{WithRuntimeDetector(c.detectorOverride)}
}
