//go:build wasm

package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"
	"time"
)

// newHTTPTransport creates a WASM-compatible HTTP transport backed by
// the browser fetch API. As in the native build, request addresses come
// from the resolver per call; in a browser with a production
// environment declared the address may be relative, which fetch
// resolves against the document base.
func newHTTPTransport(config *Config) (*httpTransport, error) {
	resolver, err := NewResolver(config.Addresses, config.resolverOptions()...)
	if err != nil {
		return nil, err
	}

	return &httpTransport{
		client:        nil, // fetch replaces http.Client here
		config:        config,
		resolver:      resolver,
		retryExecutor: newRetryExecutor(config.RetryConfig),
	}, nil
}

// do executes an HTTP request using the fetch API with retry logic.
func (t *httpTransport) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	opts := map[string]interface{}{
		"method": method,
		"headers": map[string]interface{}{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		"mode":        "cors",
		"credentials": "same-origin",
	}
	headers := opts["headers"].(map[string]interface{})
	for key, value := range t.config.Headers {
		headers[key] = value
	}

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		opts["body"] = string(jsonBody)
	}

	return t.retryExecutor.Execute(ctx, func() error {
		addr, err := t.resolver.Build(path)
		if err != nil {
			return err
		}

		respBody, err := t.fetch(ctx, addr, opts)
		if err != nil {
			return err
		}
		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
		}
		return nil
	})
}

// fetch performs a single fetch call and waits for its promise.
func (t *httpTransport) fetch(ctx context.Context, addr string, opts map[string]interface{}) ([]byte, error) {
	resultChan := make(chan []byte, 1)
	errChan := make(chan error, 1)

	fetchFunc := js.Global().Get("fetch")
	if !fetchFunc.Truthy() {
		return nil, &NetworkError{Op: "fetch " + addr, Err: errors.New("fetch API not available")}
	}

	jsOpts := js.ValueOf(map[string]interface{}{})
	for key, value := range opts {
		jsOpts.Set(key, js.ValueOf(value))
	}

	promise := fetchFunc.Invoke(addr, jsOpts)

	promise.Call("then", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		response := args[0]
		status := response.Get("status").Int()
		response.Call("text").Call("then", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			body := []byte(args[0].String())
			if status < 200 || status >= 300 {
				errChan <- parseAPIError(status, body)
			} else {
				resultChan <- body
			}
			return nil
		}))
		return nil
	})).Call("catch", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		msg := "network error"
		if args[0].Get("message").Truthy() {
			msg = args[0].Get("message").String()
		}
		errChan <- &NetworkError{Op: "fetch " + addr, Err: errors.New(msg)}
		return nil
	}))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case body := <-resultChan:
		return body, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(t.config.Timeout):
		return nil, &TimeoutError{Op: "fetch " + addr}
	}
}

// get performs a GET request
func (t *httpTransport) get(ctx context.Context, path string, result interface{}) error {
	return t.do(ctx, "GET", path, nil, result)
}

// post performs a POST request
func (t *httpTransport) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return t.do(ctx, "POST", path, body, result)
}

// put performs a PUT request
func (t *httpTransport) put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return t.do(ctx, "PUT", path, body, result)
}

// delete performs a DELETE request
func (t *httpTransport) delete(ctx context.Context, path string) error {
	return t.do(ctx, "DELETE", path, nil, nil)
}

// close closes the transport (no-op for WASM)
func (t *httpTransport) close() error {
	return nil
}
