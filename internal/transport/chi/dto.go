package chi

import (
	"time"

	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	"github.com/kailas-cloud/locadex/internal/domain/geo"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/search/result"
)

// PointDTO is a WGS84 coordinate pair.
type PointDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SearchRequest is the body of both search endpoints.
type SearchRequest struct {
	Query       string    `json:"query"`
	UserID      string    `json:"user_id,omitempty"`
	Category    string    `json:"category,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	PriceRanges []string  `json:"price_ranges,omitempty"`
	Organic     *bool     `json:"organic,omitempty"`
	Certified   *bool     `json:"certified,omitempty"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	Center      *PointDTO `json:"center,omitempty"`
	RadiusKm    float64   `json:"radius_km,omitempty"`
	Limit       int       `json:"limit,omitempty"`
	MinScore    float64   `json:"min_score,omitempty"`
	Page        int       `json:"page,omitempty"`
	PageSize    int       `json:"page_size,omitempty"`
}

func (r *SearchRequest) params() query.Params {
	p := query.Params{
		Text:        r.Query,
		UserID:      r.UserID,
		Category:    r.Category,
		Categories:  r.Categories,
		Tags:        r.Tags,
		PriceRanges: r.PriceRanges,
		Organic:     r.Organic,
		Certified:   r.Certified,
		City:        r.City,
		Country:     r.Country,
		RadiusKm:    r.RadiusKm,
		Limit:       r.Limit,
		MinScore:    r.MinScore,
		Page:        r.Page,
		PageSize:    r.PageSize,
	}
	if r.Center != nil {
		p.Center = &geo.Point{Lat: r.Center.Lat, Lon: r.Center.Lon}
	}
	return p
}

// LocationDTO mirrors listing.Location.
type LocationDTO struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address,omitempty"`
	City       string  `json:"city,omitempty"`
	Region     string  `json:"region,omitempty"`
	Country    string  `json:"country,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
}

// ContactDTO mirrors listing.ContactInfo.
type ContactDTO struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

// ListingDTO is the wire form of a listing.
type ListingDTO struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id,omitempty"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Category      string      `json:"category,omitempty"`
	Location      LocationDTO `json:"location"`
	Contact       *ContactDTO `json:"contact,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	Organic       bool        `json:"organic"`
	Certified     bool        `json:"certified"`
	PriceRange    string      `json:"price_range,omitempty"`
	ViewCount     int         `json:"view_count"`
	FavoriteCount int         `json:"favorite_count"`
	Status        string      `json:"status,omitempty"`
	CreatedAt     *time.Time  `json:"created_at,omitempty"`
}

func listingToDTO(l *listing.Listing) ListingDTO {
	dto := ListingDTO{
		ID:          l.ID,
		UserID:      l.UserID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Location: LocationDTO{
			Latitude:   l.Location.Latitude,
			Longitude:  l.Location.Longitude,
			Address:    l.Location.Address,
			City:       l.Location.City,
			Region:     l.Location.Region,
			Country:    l.Location.Country,
			PostalCode: l.Location.PostalCode,
		},
		Tags:          l.Tags,
		Organic:       l.Organic,
		Certified:     l.Certified,
		PriceRange:    l.PriceRange,
		ViewCount:     l.ViewCount,
		FavoriteCount: l.FavoriteCount,
		Status:        string(l.Status),
	}
	if !l.CreatedAt.IsZero() {
		t := l.CreatedAt
		dto.CreatedAt = &t
	}
	// contact details stay server-side in search responses
	return dto
}

// Listing converts the wire form to the domain listing.
func (d *ListingDTO) Listing() listing.Listing {
	l := listing.Listing{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Location: listing.Location{
			Latitude:   d.Location.Latitude,
			Longitude:  d.Location.Longitude,
			Address:    d.Location.Address,
			City:       d.Location.City,
			Region:     d.Location.Region,
			Country:    d.Location.Country,
			PostalCode: d.Location.PostalCode,
		},
		Tags:          d.Tags,
		Organic:       d.Organic,
		Certified:     d.Certified,
		PriceRange:    d.PriceRange,
		ViewCount:     d.ViewCount,
		FavoriteCount: d.FavoriteCount,
		Status:        listing.Status(d.Status),
	}
	if d.Contact != nil {
		l.Contact = listing.ContactInfo{Email: d.Contact.Email, Phone: d.Contact.Phone, Website: d.Contact.Website}
	}
	if d.CreatedAt != nil {
		l.CreatedAt = *d.CreatedAt
	}
	return l
}

// ResultDTO is one ranked hit.
type ResultDTO struct {
	Listing        ListingDTO `json:"listing"`
	Score          float64    `json:"score"`
	RelevanceScore float64    `json:"relevance_score"`
	Source         string     `json:"source"`
}

func resultsToDTO(rs []result.Result) []ResultDTO {
	out := make([]ResultDTO, len(rs))
	for i := range rs {
		r := &rs[i]
		out[i] = ResultDTO{
			Listing:        listingToDTO(r.Listing()),
			Score:          r.Score(),
			RelevanceScore: r.RelevanceScore(),
			Source:         string(r.Source()),
		}
	}
	return out
}

// SearchResponse wraps semantic and similar-listing results.
type SearchResponse struct {
	Results []ResultDTO `json:"results"`
	Total   int         `json:"total"`
}

// HybridResponse is the hybrid search body.
type HybridResponse struct {
	SemanticResults []ResultDTO `json:"semantic_results"`
	KeywordResults  []ResultDTO `json:"keyword_results"`
	CombinedResults []ResultDTO `json:"combined_results"`
	TotalResults    int         `json:"total_results"`
	Page            int         `json:"page"`
	PageSize        int         `json:"page_size"`
	SearchTimeMs    int64       `json:"search_time_ms"`
}

func hybridToDTO(h *result.Hybrid) HybridResponse {
	return HybridResponse{
		SemanticResults: resultsToDTO(h.SemanticResults),
		KeywordResults:  resultsToDTO(h.KeywordResults),
		CombinedResults: resultsToDTO(h.CombinedResults),
		TotalResults:    h.TotalResults,
		Page:            h.Page,
		PageSize:        h.PageSize,
		SearchTimeMs:    h.SearchTimeMs,
	}
}

// DuplicateCheckRequest asks whether listing duplicates another user's listing.
type DuplicateCheckRequest struct {
	UserID  string     `json:"user_id"`
	Listing ListingDTO `json:"listing"`
}

// DuplicateMatchDTO is one suspected duplicate.
type DuplicateMatchDTO struct {
	ListingID   string `json:"listing_id"`
	Title       string `json:"title"`
	Address     string `json:"address"`
	OwnerUserID string `json:"owner_user_id"`
	MatchType   string `json:"match_type"`
	Confidence  int    `json:"confidence"`
	Reason      string `json:"reason"`
}

// DuplicateCheckResponse lists matches strongest first. Blocking is true when
// any match reaches the recommended blocking confidence.
type DuplicateCheckResponse struct {
	Matches  []DuplicateMatchDTO `json:"matches"`
	Blocking bool                `json:"blocking"`
}

func duplicatesToDTO(ms []domdup.Match) DuplicateCheckResponse {
	resp := DuplicateCheckResponse{
		Matches:  make([]DuplicateMatchDTO, len(ms)),
		Blocking: domdup.AnyBlocking(ms),
	}
	for i, m := range ms {
		resp.Matches[i] = DuplicateMatchDTO{
			ListingID:   m.ListingID,
			Title:       m.Title,
			Address:     m.Address,
			OwnerUserID: m.OwnerUserID,
			MatchType:   string(m.MatchType),
			Confidence:  m.Confidence,
			Reason:      m.Reason,
		}
	}
	return resp
}

// InteractionRequest records a user interaction with a listing.
type InteractionRequest struct {
	UserID          string `json:"user_id"`
	ListingID       string `json:"listing_id"`
	Type            string `json:"type"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
