package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/locadex/internal/domain/geo"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/textsim"
)

// matchesKeyword applies every keyword filter in q to l. There is no scoring.
func matchesKeyword(l *listing.Listing, q *query.Query) bool {
	if !l.IsActive() {
		return false
	}
	text := textsim.NormalizeText(q.Text())
	if text != "" &&
		!containsFold(l.Title, text) &&
		!containsFold(l.Description, text) &&
		!containsFold(l.Location.Address, text) {
		return false
	}
	if cats := q.Categories(); len(cats) > 0 && !slices.Contains(cats, l.Category) {
		return false
	}
	if prs := q.PriceRanges(); len(prs) > 0 && !slices.Contains(prs, l.PriceRange) {
		return false
	}
	if o := q.Organic(); o != nil && l.Organic != *o {
		return false
	}
	if c := q.Certified(); c != nil && l.Certified != *c {
		return false
	}
	if q.City() != "" && !containsFold(l.Location.City, textsim.NormalizeText(q.City())) {
		return false
	}
	if q.Country() != "" && !containsFold(l.Location.Country, textsim.NormalizeText(q.Country())) {
		return false
	}
	if len(q.Tags()) > 0 && !anyTagOverlap(l.Tags, q.Tags()) {
		return false
	}
	if q.HasRadius() && !withinRadius(l, *q.Center(), q.RadiusKm()) {
		return false
	}
	return true
}

// containsFold reports whether the normalized haystack contains an already normalized needle.
func containsFold(haystack, needle string) bool {
	return strings.Contains(textsim.NormalizeText(haystack), needle)
}

// anyTagOverlap reports whether any listing tag contains any filter tag, case-insensitively.
func anyTagOverlap(have, want []string) bool {
	for _, w := range want {
		w = textsim.NormalizeText(w)
		if w == "" {
			continue
		}
		for _, h := range have {
			if containsFold(h, w) {
				return true
			}
		}
	}
	return false
}

// withinRadius fails listings without coordinates.
func withinRadius(l *listing.Listing, center geo.Point, radiusKm float64) bool {
	if !l.Location.HasCoordinates() {
		return false
	}
	return geo.HaversineDistanceKm(center.Lat, center.Lon, l.Location.Latitude, l.Location.Longitude) <= radiusKm
}

// sortKeyword orders keyword hits by recency, then favorites, then views.
func sortKeyword(ls []listing.Listing) {
	slices.SortStableFunc(ls, func(a, b listing.Listing) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(b.FavoriteCount, a.FavoriteCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ViewCount, a.ViewCount); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
