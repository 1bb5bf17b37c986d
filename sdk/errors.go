package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the SDK. These can be used with errors.Is()
// to check for specific error conditions.
//
// Example:
//
//	listing, err := client.GetListing(ctx, id)
//	if errors.Is(err, sdk.ErrNotFound) {
//	    // Listing does not exist
//	} else if errors.Is(err, sdk.ErrTimeout) {
//	    // Request timed out
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound is returned when a listing does not exist
	ErrNotFound = errors.New("listing not found")

	// ErrTimeout is returned when a request times out
	ErrTimeout = errors.New("request timeout")

	// ErrServerError is returned for 5xx server errors
	ErrServerError = errors.New("server error")

	// ErrInvalidResponse is returned when the server response cannot be parsed
	ErrInvalidResponse = errors.New("invalid response from server")

	// ErrContextCanceled is returned when the context is canceled before completion
	ErrContextCanceled = errors.New("context canceled")

	// ErrClientClosed is returned when an operation is attempted on a closed client
	ErrClientClosed = errors.New("client is closed")
)

// AddressConstructionError reports that a request address could not be
// built from the configured bases. It is raised by Resolver.Build before
// any network I/O, so a malformed address never shows up disguised as a
// connection failure. Transports propagate it unchanged and callers must
// not substitute placeholder data on it.
//
// Example:
//
//	var addrErr *sdk.AddressConstructionError
//	if errors.As(err, &addrErr) {
//	    log.Printf("bad address %q: %s", addrErr.Candidate, addrErr.Reason)
//	}
type AddressConstructionError struct {
	// Candidate is the address that failed validation.
	Candidate string
	// Reason describes why the candidate was rejected.
	Reason string
	// wrapped is the underlying parse error, if any.
	wrapped error
}

// Error implements the error interface
func (e *AddressConstructionError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("cannot construct address %q: %s: %v", e.Candidate, e.Reason, e.wrapped)
	}
	return fmt.Sprintf("cannot construct address %q: %s", e.Candidate, e.Reason)
}

// Unwrap returns the underlying parse error
func (e *AddressConstructionError) Unwrap() error {
	return e.wrapped
}

// IsRetryable returns false. A bad address stays bad no matter how
// often it is retried.
func (e *AddressConstructionError) IsRetryable() bool {
	return false
}

func newAddressConstructionError(candidate, reason string, wrapped error) *AddressConstructionError {
	return &AddressConstructionError{
		Candidate: candidate,
		Reason:    reason,
		wrapped:   wrapped,
	}
}

// APIError represents an error response from the marketplace API.
// It contains the HTTP status code and error details from the server.
//
// Example:
//
//	var apiErr *sdk.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.IsNotFound() {
//	        // Handle 404
//	    } else if apiErr.IsServerError() {
//	        // Handle 5xx, maybe retry
//	    }
//	}
type APIError struct {
	// StatusCode is the HTTP status code from the response
	StatusCode int `json:"-"`
	// Message is the error message from the server
	Message string `json:"error"`
	// Code is an optional error code for programmatic handling
	Code string `json:"code,omitempty"`
	// Details provides additional error information
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error (status %d): %s - %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Is maps API status codes onto the package sentinels so callers can
// use errors.Is without inspecting the struct.
func (e *APIError) Is(target error) bool {
	switch {
	case errors.Is(target, ErrNotFound):
		return e.IsNotFound()
	case errors.Is(target, ErrServerError):
		return e.IsServerError()
	case errors.Is(target, ErrTimeout):
		return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

// IsNotFound returns true if the error is a not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == "NOT_FOUND"
}

// IsServerError returns true if the error is a server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsClientError returns true if the error is a client error
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsVersionMismatch returns true if an update was rejected because the
// listing changed since it was read.
func (e *APIError) IsVersionMismatch() bool {
	return e.StatusCode == http.StatusConflict || e.Code == "VERSION_MISMATCH"
}

// IsRetryable returns true if the error is retryable
func (e *APIError) IsRetryable() bool {
	if e.IsServerError() {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout {
		return true
	}
	return false
}

// NetworkError represents a network-related error such as connection
// refused, DNS resolution failure, or connection timeout.
type NetworkError struct {
	// Op is the operation that failed (e.g., "GET /v1/listings/abc")
	Op string
	// Err is the underlying network error
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true, network errors are generally transient
func (e *NetworkError) IsRetryable() bool {
	return true
}

// TimeoutError represents an operation that exceeded its time limit.
type TimeoutError struct {
	// Op is the operation that timed out
	Op string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout during %s", e.Op)
}

// Is lets errors.Is(err, ErrTimeout) match
func (e *TimeoutError) Is(target error) bool {
	return errors.Is(target, ErrTimeout)
}

// IsRetryable returns true, timeouts are always retryable
func (e *TimeoutError) IsRetryable() bool {
	return true
}

// IsNotFound checks if the error represents a "not found" condition.
//
// Example:
//
//	listing, err := client.GetListing(ctx, id)
//	if sdk.IsNotFound(err) {
//	    // Listing is gone, drop it from the view
//	} else if err != nil {
//	    return err
//	}
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsNotFound()
	}
	return false
}

// IsRetryable checks if an error is retryable. Retryable errors are
// network errors, timeouts, 5xx responses and rate limiting. Address
// construction failures and other 4xx responses are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var addrErr *AddressConstructionError
	if errors.As(err, &addrErr) {
		return false
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.IsRetryable()
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.IsRetryable()
	}

	return false
}

// parseAPIError builds an APIError from an error response body. Bodies
// that are not the standard {error, code, details} shape are preserved
// verbatim in the message.
func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}
