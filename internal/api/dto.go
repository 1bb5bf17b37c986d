package api

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/craftparty/emerald-market/internal/database"
)

// CreateListingRequest represents the request body for creating a listing
type CreateListingRequest struct {
	Item          string     `json:"item" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	PriceEmeralds int        `json:"price_emeralds" validate:"required,min=1"`
	Seller        string     `json:"seller" validate:"required"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Validate checks the request for obviously bad input before it
// reaches the database.
func (r *CreateListingRequest) Validate() error {
	if strings.TrimSpace(r.Item) == "" {
		return errors.New("item is required")
	}
	if strings.TrimSpace(r.Seller) == "" {
		return errors.New("seller is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if r.PriceEmeralds <= 0 {
		return errors.New("price_emeralds must be positive")
	}
	return nil
}

// ToListing converts the request into a listing model
func (r *CreateListingRequest) ToListing() *database.Listing {
	return &database.Listing{
		Item:          r.Item,
		Quantity:      r.Quantity,
		PriceEmeralds: r.PriceEmeralds,
		Seller:        r.Seller,
		Description:   r.Description,
		ExpiresAt:     r.ExpiresAt,
	}
}

// UpdateListingRequest represents the request body for updating a
// listing. Version carries the optimistic lock the caller read.
type UpdateListingRequest struct {
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	PriceEmeralds int        `json:"price_emeralds" validate:"required,min=1"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Version       int        `json:"version" validate:"required,min=1"`
}

// Validate checks the request for obviously bad input
func (r *UpdateListingRequest) Validate() error {
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if r.PriceEmeralds <= 0 {
		return errors.New("price_emeralds must be positive")
	}
	if r.Version <= 0 {
		return errors.New("version is required")
	}
	return nil
}

// ToListing converts the request into the fields applied by an update
func (r *UpdateListingRequest) ToListing() *database.Listing {
	return &database.Listing{
		Quantity:      r.Quantity,
		PriceEmeralds: r.PriceEmeralds,
		Description:   r.Description,
		ExpiresAt:     r.ExpiresAt,
	}
}

// BatchGetRequest represents a request to get multiple listings
type BatchGetRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
}

// BatchGetResponse represents the response for batch get operations.
// Missing carries the IDs that are absent or expired.
type BatchGetResponse struct {
	Listings map[string]*database.Listing `json:"listings"`
	Missing  []string                     `json:"missing"`
}

// SearchResponse represents a page of listings
type SearchResponse struct {
	Listings []*database.Listing `json:"listings"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// Error codes
const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeVersionMismatch = "VERSION_MISMATCH"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeRateLimited     = "RATE_LIMITED"
)

// NewErrorResponse creates a new error response
func NewErrorResponse(err string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: err,
		Code:  code,
	}
}

// NewErrorResponseWithDetails creates a new error response with details
func NewErrorResponseWithDetails(err string, code string, details string) *ErrorResponse {
	return &ErrorResponse{
		Error:   err,
		Code:    code,
		Details: details,
	}
}
