package sdk

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// httpTransport handles HTTP communication with the marketplace API.
//
// The actual request execution is split between:
//   - transport_native.go: Standard Go HTTP client for regular builds
//   - transport_wasm.go: Fetch API wrapper for WebAssembly builds
//
// Both implementations share one rule: the request URL is produced by
// the resolver at request time, per call. The transport holds no
// precomputed base URL, because the right base depends on the runtime
// context of the moment the request is made.
type httpTransport struct {
	// client is the underlying HTTP client (native builds only)
	client *http.Client
	// config holds the SDK configuration
	config *Config
	// resolver turns paths into addresses per request
	resolver *Resolver
	// retryExecutor handles retry logic
	retryExecutor *retryExecutor
}

// buildPath builds a URL path with proper escaping for path parameters.
// It replaces placeholders like {0}, {1}, etc. with the provided
// arguments, ensuring special characters are URL-encoded.
//
// Example:
//
//	path := buildPath("/v1/listings/{0}", id.String())
func buildPath(pattern string, args ...string) string {
	path := pattern
	for i, arg := range args {
		placeholder := fmt.Sprintf("{%d}", i)
		escaped := url.QueryEscape(arg)
		escaped = strings.ReplaceAll(escaped, "+", "%20")
		path = strings.Replace(path, placeholder, escaped, 1)
	}
	return path
}

// encodeQuery renders a search query as a URL query string, empty when
// no filters are set.
func encodeQuery(q SearchListingsQuery) string {
	values := url.Values{}
	if q.Item != "" {
		values.Set("item", q.Item)
	}
	if q.Seller != "" {
		values.Set("seller", q.Seller)
	}
	if q.MaxPrice > 0 {
		values.Set("max_price", strconv.Itoa(q.MaxPrice))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	encoded := values.Encode()
	if encoded == "" {
		return ""
	}
	return "?" + encoded
}
