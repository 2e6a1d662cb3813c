// Package listing defines the search-relevant projection of a directory listing.
package listing

import (
	"fmt"
	"strings"
	"time"
)

// VectorIDPrefix prefixes listing ids in the vector index.
const VectorIDPrefix = "listing_"

// Status is the moderation state of a listing.
type Status string

// Listing statuses.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusRejected:
		return true
	}
	return false
}

// Location is the postal and geographic position of a listing.
type Location struct {
	Latitude   float64
	Longitude  float64
	Address    string
	City       string
	Region     string
	Country    string
	PostalCode string
}

// HasCoordinates reports whether the location carries a usable point.
// (0,0) is what the record store writes for "unknown".
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// ContactInfo holds optional contact channels. Empty string means absent.
type ContactInfo struct {
	Email   string
	Phone   string
	Website string
}

// Listing is read-only input for the search and duplicate engines.
type Listing struct {
	ID            string
	UserID        string
	Title         string
	Description   string
	Category      string
	Location      Location
	Contact       ContactInfo
	Tags          []string
	Organic       bool
	Certified     bool
	PriceRange    string
	ViewCount     int
	FavoriteCount int
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the fields the engines depend on.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if l.Status != "" && !l.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", l.Status)
	}
	lat, lon := l.Location.Latitude, l.Location.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %f,%f", lat, lon)
	}
	return nil
}

// IsActive reports whether the listing is visible to search.
func (l *Listing) IsActive() bool { return l.Status == StatusActive }

// VectorID returns the id of the listing's embedding in the vector index.
func (l *Listing) VectorID() string { return VectorID(l.ID) }

// VectorID maps a listing id to its vector index id.
func VectorID(listingID string) string { return VectorIDPrefix + listingID }

// ListingID is the inverse of VectorID. Ids without the prefix are returned as is.
func ListingID(vectorID string) string { return strings.TrimPrefix(vectorID, VectorIDPrefix) }

// SearchableText is the canonical text fed to embedding generation: title,
// description, category, city, address and tags, space-joined, empty fields omitted.
// Index time and query time must both go through it.
func SearchableText(l *Listing) string {
	parts := make([]string, 0, 5+len(l.Tags))
	for _, p := range []string{l.Title, l.Description, l.Category, l.Location.City, l.Location.Address} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	for _, tag := range l.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			parts = append(parts, tag)
		}
	}
	return strings.Join(parts, " ")
}

// Metadata is the flat denormalized copy stored next to the vector.
// Only equality-filterable fields and display fields go in.
func Metadata(l *Listing) map[string]string {
	return map[string]string{
		"listing_id": l.ID,
		"title":      l.Title,
		"category":   l.Category,
		"city":       l.Location.City,
		"country":    l.Location.Country,
		"status":     string(l.Status),
		"tags":       strings.Join(l.Tags, ","),
		"created_at": l.CreatedAt.UTC().Format(time.RFC3339),
	}
}
