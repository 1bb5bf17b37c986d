package sdk

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a marketplace offer: a seller offers a quantity of an item
// at a price in emeralds.
type Listing struct {
	// ID uniquely identifies the listing.
	ID uuid.UUID `json:"id"`
	// Item is the item identifier, e.g. "minecraft:diamond_sword".
	Item string `json:"item"`
	// Quantity is the number of items offered. Always positive.
	Quantity int `json:"quantity"`
	// PriceEmeralds is the asking price for the whole stack.
	PriceEmeralds int `json:"price_emeralds"`
	// Seller is the selling player's name.
	Seller string `json:"seller"`
	// Description is free-form seller text.
	Description string `json:"description,omitempty"`
	// Version increments on every update; used for optimistic updates.
	Version int `json:"version"`
	// ExpiresAt is when the listing lapses. Nil means it does not expire.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// CreatedAt is when the listing was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the listing was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExpired reports whether the listing has lapsed.
func (l *Listing) IsExpired() bool {
	return l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt)
}

// CreateListingRequest is the payload for creating a listing.
type CreateListingRequest struct {
	Item          string     `json:"item"`
	Quantity      int        `json:"quantity"`
	PriceEmeralds int        `json:"price_emeralds"`
	Seller        string     `json:"seller"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// UpdateListingRequest is the payload for updating a listing. Version
// must match the current server-side version or the update is rejected
// with a conflict.
type UpdateListingRequest struct {
	Quantity      int        `json:"quantity"`
	PriceEmeralds int        `json:"price_emeralds"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Version       int        `json:"version"`
}

// SearchListingsQuery filters and pages a listing search. Zero values
// mean "no filter".
type SearchListingsQuery struct {
	// Item restricts results to a single item identifier.
	Item string
	// Seller restricts results to one seller.
	Seller string
	// MaxPrice is an inclusive price ceiling in emeralds.
	MaxPrice int
	// Limit caps the number of results. Server default applies when 0.
	Limit int
	// Offset skips results for paging.
	Offset int
}

// SearchListingsResponse is a page of search results.
type SearchListingsResponse struct {
	Listings []Listing `json:"listings"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}
