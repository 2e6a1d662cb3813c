package search

import (
	"strings"
	"time"

	"github.com/kailas-cloud/locadex/internal/domain/listing"
)

// Relevance boosts layered on top of the raw similarity.
const (
	CategoryBoost = 0.10
	TagBoost      = 0.10
	RecencyBoost  = 0.05
	RecencyWindow = 30 * 24 * time.Hour
)

// Criteria are the query signals the scorer compares a listing against.
type Criteria struct {
	Category string
	Tags     []string
}

// Relevance combines the raw similarity s with category, tag and recency boosts, capped at 1.
func Relevance(s float64, l *listing.Listing, c Criteria, now time.Time) float64 {
	rel := s
	if c.Category != "" && l.Category == c.Category {
		rel += CategoryBoost
	}
	if len(c.Tags) > 0 {
		rel += TagBoost * float64(matchingTags(l.Tags, c.Tags)) / float64(len(c.Tags))
	}
	if !l.CreatedAt.IsZero() && now.Sub(l.CreatedAt) <= RecencyWindow {
		rel += RecencyBoost
	}
	return min(rel, 1.0)
}

// matchingTags counts query tags present on the listing, case-insensitively.
func matchingTags(have, want []string) int {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	n := 0
	for _, t := range want {
		if _, ok := set[strings.ToLower(strings.TrimSpace(t))]; ok {
			n++
		}
	}
	return n
}
