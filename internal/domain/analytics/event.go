// Package analytics defines the fire-and-forget events recorded by search and the HTTP surface.
package analytics

import (
	"fmt"
	"time"
)

// SearchType is the retrieval mode a search event came from.
type SearchType string

// Search types.
const (
	SearchSemantic SearchType = "semantic"
	SearchHybrid   SearchType = "hybrid"
	SearchSimilar  SearchType = "similar"
)

// SearchEvent records one completed search.
type SearchEvent struct {
	ID          string
	UserID      string // optional
	Query       string
	Type        SearchType
	ResultCount int
	Filters     map[string]string
	At          time.Time
}

// InteractionType is what a user did with a listing.
type InteractionType string

// Interaction types.
const (
	InteractionView     InteractionType = "view"
	InteractionClick    InteractionType = "click"
	InteractionFavorite InteractionType = "favorite"
	InteractionContact  InteractionType = "contact"
	InteractionShare    InteractionType = "share"
)

// IsValid reports whether t is a known interaction type.
func (t InteractionType) IsValid() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionFavorite, InteractionContact, InteractionShare:
		return true
	}
	return false
}

// InteractionEvent records a user interacting with a listing.
type InteractionEvent struct {
	ID              string
	UserID          string
	ListingID       string
	Type            InteractionType
	DurationSeconds *int // optional
	At              time.Time
}

// Validate checks required fields.
func (e *InteractionEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if e.ListingID == "" {
		return fmt.Errorf("listing id is required")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid interaction type: %q", e.Type)
	}
	if e.DurationSeconds != nil && *e.DurationSeconds < 0 {
		return fmt.Errorf("duration must be non-negative")
	}
	return nil
}
