//go:build !wasm

package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// newHTTPTransport creates a native HTTP transport. The resolver is
// consulted on every request; nothing about the destination is pinned
// here.
func newHTTPTransport(config *Config) (*httpTransport, error) {
	resolver, err := NewResolver(config.Addresses, config.resolverOptions()...)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConns:        config.TransportConfig.MaxIdleConns,
		MaxConnsPerHost:     config.TransportConfig.MaxConnsPerHost,
		IdleConnTimeout:     config.TransportConfig.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &httpTransport{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config:        config,
		resolver:      resolver,
		retryExecutor: newRetryExecutor(config.RetryConfig),
	}, nil
}

// do executes an HTTP request with retry logic.
func (t *httpTransport) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return t.retryExecutor.Execute(ctx, func() error {
		return t.performHTTPRequest(ctx, method, path, body, result)
	})
}

// performHTTPRequest performs a single HTTP request. Address resolution
// happens here, inside the retry loop, so every attempt re-evaluates
// the runtime context.
func (t *httpTransport) performHTTPRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	addr, err := t.resolver.Build(path)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, addr, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "emerald-market-go-sdk/1.0.0")
	for key, value := range t.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &NetworkError{Op: "reading response", Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
		}
		return nil
	}

	return parseAPIError(resp.StatusCode, respBody)
}

// get performs a GET request
func (t *httpTransport) get(ctx context.Context, path string, result interface{}) error {
	return t.do(ctx, http.MethodGet, path, nil, result)
}

// post performs a POST request
func (t *httpTransport) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return t.do(ctx, http.MethodPost, path, body, result)
}

// put performs a PUT request
func (t *httpTransport) put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return t.do(ctx, http.MethodPut, path, body, result)
}

// delete performs a DELETE request
func (t *httpTransport) delete(ctx context.Context, path string) error {
	return t.do(ctx, http.MethodDelete, path, nil, nil)
}

// close closes the transport
func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}
