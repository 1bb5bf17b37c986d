package sdk

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressConstructionError(t *testing.T) {
	wrapped := errors.New("parse failure")
	err := newAddressConstructionError("not a url/items", "address does not parse", wrapped)

	assert.Contains(t, err.Error(), `"not a url/items"`)
	assert.Contains(t, err.Error(), "address does not parse")
	assert.ErrorIs(t, err, wrapped)
	assert.False(t, err.IsRetryable())
	assert.False(t, IsRetryable(err))
}

func TestAPIErrorHelpers(t *testing.T) {
	tests := []struct {
		name            string
		err             *APIError
		notFound        bool
		serverError     bool
		retryable       bool
		versionMismatch bool
	}{
		{
			name:     "404",
			err:      &APIError{StatusCode: http.StatusNotFound, Message: "gone"},
			notFound: true,
		},
		{
			name:     "not found by code",
			err:      &APIError{StatusCode: http.StatusBadRequest, Code: "NOT_FOUND"},
			notFound: true,
		},
		{
			name:        "500",
			err:         &APIError{StatusCode: http.StatusInternalServerError},
			serverError: true,
			retryable:   true,
		},
		{
			name:      "429",
			err:       &APIError{StatusCode: http.StatusTooManyRequests},
			retryable: true,
		},
		{
			name:            "409",
			err:             &APIError{StatusCode: http.StatusConflict},
			versionMismatch: true,
		},
		{
			name: "400",
			err:  &APIError{StatusCode: http.StatusBadRequest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, tt.err.IsNotFound())
			assert.Equal(t, tt.serverError, tt.err.IsServerError())
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, tt.versionMismatch, tt.err.IsVersionMismatch())
		})
	}
}

func TestAPIErrorSentinelMapping(t *testing.T) {
	notFound := &APIError{StatusCode: http.StatusNotFound, Message: "no such listing"}
	assert.ErrorIs(t, error(notFound), ErrNotFound)
	assert.True(t, IsNotFound(notFound))

	server := &APIError{StatusCode: http.StatusBadGateway}
	assert.ErrorIs(t, error(server), ErrServerError)

	timeout := &TimeoutError{Op: "GET /health"}
	assert.ErrorIs(t, error(timeout), ErrTimeout)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(&NetworkError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, IsRetryable(&TimeoutError{Op: "fetch"}))
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 404}))
	assert.False(t, IsRetryable(errors.New("arbitrary")))
}

func TestParseAPIError(t *testing.T) {
	err := parseAPIError(404, []byte(`{"error":"listing not found","code":"NOT_FOUND"}`))
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "listing not found", apiErr.Message)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	err = parseAPIError(500, []byte("plain text failure"))
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "plain text failure", apiErr.Message)

	err = parseAPIError(502, nil)
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
