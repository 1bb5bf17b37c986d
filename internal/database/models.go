package database

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a marketplace offer stored in the listings table: a
// seller offers a quantity of a Minecraft item at a price in emeralds.
type Listing struct {
	ID            uuid.UUID  `json:"id"`
	Item          string     `json:"item"`
	Quantity      int        `json:"quantity"`
	PriceEmeralds int        `json:"price_emeralds"`
	Seller        string     `json:"seller"`
	Description   string     `json:"description,omitempty"`
	Version       int        `json:"version"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsExpired reports whether the listing has lapsed.
func (l *Listing) IsExpired() bool {
	return l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt)
}

// SearchFilter narrows and pages a listing search. Zero values mean
// "no filter".
type SearchFilter struct {
	Item     string
	Seller   string
	MaxPrice int
	Limit    int
	Offset   int
}

// Normalize clamps paging values to safe bounds.
func (f *SearchFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
