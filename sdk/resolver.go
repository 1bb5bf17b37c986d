package sdk

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// EnvVarName is the environment variable that declares the deployment
// environment (test, development, production). Anything else maps to
// EnvOther; unset maps to EnvDevelopment.
const EnvVarName = "MARKET_ENV"

// Environment is the declared deployment environment.
type Environment string

const (
	// EnvTest is the environment declared for automated test deployments.
	EnvTest Environment = "test"
	// EnvDevelopment is the default environment when nothing is declared.
	EnvDevelopment Environment = "development"
	// EnvProduction is the environment declared for production deployments.
	EnvProduction Environment = "production"
	// EnvOther covers any declared value the resolver does not recognize.
	EnvOther Environment = "other"
)

// ParseEnvironment maps a raw declaration to an Environment.
// Empty input defaults to development; unknown input maps to other.
func ParseEnvironment(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return EnvDevelopment
	case string(EnvTest):
		return EnvTest
	case string(EnvDevelopment):
		return EnvDevelopment
	case string(EnvProduction):
		return EnvProduction
	default:
		return EnvOther
	}
}

// RuntimeContext describes where a request is about to be made from.
// It is computed fresh on every Build call and must never be cached:
// test harnesses swap the browser global between cases, so yesterday's
// answer is worthless. Caching the context is exactly how the original
// marketplace frontend ended up rendering placeholder listings.
type RuntimeContext struct {
	// IsServerSide is true when no browser document scope is reachable.
	// Relative addresses cannot be resolved here in any environment.
	IsServerSide bool

	// IsTestRunner is true when the process runs under the Go test
	// harness. Checked independently of DeclaredEnv because a
	// server-rendering path invoked by a test can declare production
	// while still running inside the test process.
	IsTestRunner bool

	// DeclaredEnv is the deployment environment from MARKET_ENV.
	DeclaredEnv Environment
}

// DetectRuntime reads the ambient process and platform state at call
// time. It is a pure read: no side effects, total over all inputs.
func DetectRuntime() RuntimeContext {
	return RuntimeContext{
		IsServerSide: !browserGlobalPresent(),
		IsTestRunner: testHarnessPresent(),
		DeclaredEnv:  ParseEnvironment(os.Getenv(EnvVarName)),
	}
}

// AddressConfig holds the per-environment base URLs used to resolve API
// addresses. It is immutable after validation and safe for concurrent
// readers.
type AddressConfig struct {
	// TestBaseURL is used when the process runs under a test harness.
	// Default: http://localhost:7410
	TestBaseURL string

	// DevBaseURL is used in a genuine browser context with a
	// development environment declared.
	// Default: http://localhost:3000
	DevBaseURL string

	// ProdBaseURL is used in a genuine browser context with a
	// production environment declared. May be empty: relative
	// addressing is valid there because the document base resolves it.
	ProdBaseURL string

	// FallbackBaseURL is used whenever execution is server-side,
	// regardless of declared environment, and for unrecognized
	// environments. Must be an absolute URL; there is no document base
	// to resolve anything else against.
	FallbackBaseURL string
}

// DefaultAddressConfig returns the address configuration used by
// DefaultConfig. All absolute defaults point at local services.
func DefaultAddressConfig() AddressConfig {
	return AddressConfig{
		TestBaseURL:     "http://localhost:7410",
		DevBaseURL:      "http://localhost:3000",
		ProdBaseURL:     "",
		FallbackBaseURL: "http://localhost:7410",
	}
}

// Validate checks the construction-time invariants. The fallback base
// must be non-empty and absolute; this is the field that prevents
// server-side code from ever attempting relative addressing.
func (c AddressConfig) Validate() error {
	if strings.TrimSpace(c.FallbackBaseURL) == "" {
		return fmt.Errorf("%w: fallback base URL must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.FallbackBaseURL)
	if err != nil {
		return fmt.Errorf("%w: fallback base URL %q: %v", ErrInvalidConfig, c.FallbackBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: fallback base URL %q must be absolute (scheme and host)", ErrInvalidConfig, c.FallbackBaseURL)
	}
	return nil
}

// Resolver turns API paths into fetchable addresses. It is stateless:
// every Build call re-detects the runtime context and re-reads the
// declared environment, and nothing is memoized between calls.
type Resolver struct {
	config AddressConfig
	detect func() RuntimeContext
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithRuntimeDetector replaces the ambient runtime detection with the
// given provider. Tests use this to exercise every context combination
// without mutating process state.
func WithRuntimeDetector(detect func() RuntimeContext) ResolverOption {
	return func(r *Resolver) {
		if detect != nil {
			r.detect = detect
		}
	}
}

// NewResolver validates the configuration and returns a resolver.
func NewResolver(config AddressConfig, opts ...ResolverOption) (*Resolver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		config: config,
		detect: DetectRuntime,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Build resolves an API path into an address suitable for the HTTP
// client of the current runtime context. The path is normalized to a
// single leading slash, prefixed with the selected base URL and
// validated before it is returned. Build never falls back to another
// base on failure; a malformed result is an AddressConstructionError,
// raised here instead of surfacing later as an opaque network error.
func (r *Resolver) Build(path string) (string, error) {
	rc := r.detect()
	base := selectBaseURL(rc, r.config)
	addr := strings.TrimSuffix(base, "/") + normalizePath(path)
	if err := validateAddress(addr); err != nil {
		return "", err
	}
	return addr, nil
}

// Config returns a copy of the resolver's address configuration.
func (r *Resolver) Config() AddressConfig {
	return r.config
}

// selectBaseURL picks exactly one base URL. The priority order is the
// correctness fix this package exists for: server-side execution wins
// over everything, the test harness wins over the declared environment,
// and only a genuine browser context may dispatch on the declaration.
func selectBaseURL(rc RuntimeContext, config AddressConfig) string {
	if rc.IsServerSide {
		return config.FallbackBaseURL
	}
	if rc.IsTestRunner {
		return config.TestBaseURL
	}
	switch rc.DeclaredEnv {
	case EnvTest:
		return config.TestBaseURL
	case EnvDevelopment:
		return config.DevBaseURL
	case EnvProduction:
		return config.ProdBaseURL
	default:
		return config.FallbackBaseURL
	}
}

// normalizePath returns the path with exactly one leading slash.
// Empty input becomes "/" and duplicate leading slashes collapse, so
// building a path is idempotent over its own normalization.
func normalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

// validateAddress accepts rooted relative addresses as-is and requires
// everything else to parse as an absolute URL with scheme and host.
// Relative candidates cannot be checked by the URL parser outside a
// browser (it would need a document base), so only absolute claims are
// parsed.
func validateAddress(addr string) error {
	if strings.HasPrefix(addr, "/") {
		return nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return newAddressConstructionError(addr, "address does not parse", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return newAddressConstructionError(addr, "address is neither absolute nor rooted", nil)
	}
	return nil
}
