package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/craftparty/emerald-market/internal/database"
)

// EventType represents the type of listing event
type EventType string

const (
	// EventTypeCreated is emitted when a listing is created
	EventTypeCreated EventType = "created"
	// EventTypeUpdated is emitted when a listing is updated
	EventTypeUpdated EventType = "updated"
	// EventTypeDeleted is emitted when a listing is deleted
	EventTypeDeleted EventType = "deleted"
)

// Subject names for listing events
const (
	SubjectListingCreated = "market.listing.created"
	SubjectListingUpdated = "market.listing.updated"
	SubjectListingDeleted = "market.listing.deleted"
)

// ListingEvent is the payload published for every listing change.
// Consumers (search indexers, Discord notifiers) are external to this
// service.
type ListingEvent struct {
	// ID is the unique event ID, also used as the JetStream
	// deduplication message ID.
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// ListingID always identifies the affected listing.
	ListingID uuid.UUID `json:"listing_id"`

	// Listing carries the post-change state; nil for deletions.
	Listing *database.Listing `json:"listing,omitempty"`
}

// NewListingEvent creates an event for the given change. listing may
// be nil for deletions.
func NewListingEvent(eventType EventType, listingID uuid.UUID, listing *database.Listing) *ListingEvent {
	return &ListingEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ListingID: listingID,
		Listing:   listing,
	}
}

// Subject returns the NATS subject for the event type.
func (e *ListingEvent) Subject() string {
	switch e.Type {
	case EventTypeCreated:
		return SubjectListingCreated
	case EventTypeUpdated:
		return SubjectListingUpdated
	default:
		return SubjectListingDeleted
	}
}

// Marshal converts the event to JSON bytes
func (e *ListingEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalListingEvent unmarshals a listing event from JSON
func UnmarshalListingEvent(data []byte) (*ListingEvent, error) {
	var event ListingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
