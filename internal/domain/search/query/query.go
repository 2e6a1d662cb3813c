// Package query holds the validated search query shared by semantic, keyword and hybrid retrieval.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/geo"
)

// MaxTextLength is the maximum allowed query text length in bytes.
const MaxTextLength = 4096

// Limits bounds result sizes. Zero fields fall back to DefaultLimits.
type Limits struct {
	DefaultLimit    int
	MaxLimit        int
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits returns the built-in result bounds.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: 20, MaxLimit: 100, DefaultPageSize: 20, MaxPageSize: 100}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.DefaultLimit <= 0 {
		l.DefaultLimit = d.DefaultLimit
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = d.MaxLimit
	}
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = d.DefaultPageSize
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = d.MaxPageSize
	}
	return l
}

// Params is the raw caller input for New.
type Params struct {
	Text        string
	UserID      string
	Category    string
	Categories  []string
	Tags        []string
	PriceRanges []string
	Organic     *bool
	Certified   *bool
	City        string
	Country     string
	Center      *geo.Point
	RadiusKm    float64
	Limit       int
	MinScore    float64
	Page        int
	PageSize    int
}

// Query is a validated search query.
type Query struct {
	text        string
	userID      string
	category    string
	categories  []string
	tags        []string
	priceRanges []string
	organic     *bool
	certified   *bool
	city        string
	country     string
	center      *geo.Point
	radiusKm    float64
	limit       int
	minScore    float64
	page        int
	pageSize    int
}

// New validates and normalizes search parameters. Validation failures wrap domain.ErrInvalidQuery.
func New(p Params, lim Limits) (Query, error) {
	lim = lim.withDefaults()
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxTextLength)
	}
	if p.MinScore < 0 || p.MinScore > 1 {
		return Query{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidQuery)
	}
	if p.RadiusKm < 0 {
		return Query{}, fmt.Errorf("%w: radius must be non-negative", domain.ErrInvalidQuery)
	}
	if p.RadiusKm > 0 && p.Center == nil {
		return Query{}, fmt.Errorf("%w: radius requires a center point", domain.ErrInvalidQuery)
	}
	if p.Center != nil && !geo.ValidateCoordinates(p.Center.Lat, p.Center.Lon) {
		return Query{}, fmt.Errorf("%w: center coordinates out of range", domain.ErrInvalidQuery)
	}
	if p.Page < 0 || p.PageSize < 0 || p.Limit < 0 {
		return Query{}, fmt.Errorf("%w: limit, page and page_size must be non-negative", domain.ErrInvalidQuery)
	}

	limit := p.Limit
	if limit == 0 {
		limit = lim.DefaultLimit
	}
	limit = min(limit, lim.MaxLimit)

	page := max(p.Page, 1)
	pageSize := p.PageSize
	if pageSize == 0 {
		pageSize = lim.DefaultPageSize
	}
	pageSize = min(pageSize, lim.MaxPageSize)

	var center *geo.Point
	if p.Center != nil {
		c := *p.Center
		center = &c
	}

	return Query{
		text:        text,
		userID:      p.UserID,
		category:    strings.TrimSpace(p.Category),
		categories:  compact(p.Categories),
		tags:        compact(p.Tags),
		priceRanges: compact(p.PriceRanges),
		organic:     p.Organic,
		certified:   p.Certified,
		city:        strings.TrimSpace(p.City),
		country:     strings.TrimSpace(p.Country),
		center:      center,
		radiusKm:    p.RadiusKm,
		limit:       limit,
		minScore:    p.MinScore,
		page:        page,
		pageSize:    pageSize,
	}, nil
}

// compact trims values and drops blanks.
func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Text returns the trimmed query text.
func (q *Query) Text() string { return q.text }

// UserID returns the optional searching user.
func (q *Query) UserID() string { return q.userID }

// Category returns the single category used for the vector filter and the scorer boost.
func (q *Query) Category() string { return q.category }

// Categories returns the keyword category set. Category is folded in.
func (q *Query) Categories() []string {
	if q.category == "" {
		return q.categories
	}
	for _, c := range q.categories {
		if c == q.category {
			return q.categories
		}
	}
	return append([]string{q.category}, q.categories...)
}

// Tags returns the query tags.
func (q *Query) Tags() []string { return q.tags }

// PriceRanges returns the accepted price ranges.
func (q *Query) PriceRanges() []string { return q.priceRanges }

// Organic returns the organic filter (nil = any).
func (q *Query) Organic() *bool { return q.organic }

// Certified returns the certified filter (nil = any).
func (q *Query) Certified() *bool { return q.certified }

// City returns the city substring filter.
func (q *Query) City() string { return q.city }

// Country returns the country substring filter.
func (q *Query) Country() string { return q.country }

// Center returns the radius filter center (nil = no radius filter).
func (q *Query) Center() *geo.Point { return q.center }

// RadiusKm returns the radius filter in kilometers.
func (q *Query) RadiusKm() float64 { return q.radiusKm }

// HasRadius reports whether a center and a positive radius are set.
func (q *Query) HasRadius() bool { return q.center != nil && q.radiusKm > 0 }

// Limit returns the semantic candidate count.
func (q *Query) Limit() int { return q.limit }

// MinScore returns the raw similarity floor.
func (q *Query) MinScore() float64 { return q.minScore }

// Page returns the 1-based page.
func (q *Query) Page() int { return q.page }

// PageSize returns the page size.
func (q *Query) PageSize() int { return q.pageSize }

// Filters flattens the active filters for analytics.
func (q *Query) Filters() map[string]string {
	f := make(map[string]string)
	if c := q.Categories(); len(c) > 0 {
		f["categories"] = strings.Join(c, ",")
	}
	if len(q.tags) > 0 {
		f["tags"] = strings.Join(q.tags, ",")
	}
	if len(q.priceRanges) > 0 {
		f["price_ranges"] = strings.Join(q.priceRanges, ",")
	}
	if q.organic != nil {
		f["organic"] = strconv.FormatBool(*q.organic)
	}
	if q.certified != nil {
		f["certified"] = strconv.FormatBool(*q.certified)
	}
	if q.city != "" {
		f["city"] = q.city
	}
	if q.country != "" {
		f["country"] = q.country
	}
	if q.HasRadius() {
		f["center"] = strconv.FormatFloat(q.center.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(q.center.Lon, 'f', 6, 64)
		f["radius_km"] = strconv.FormatFloat(q.radiusKm, 'f', -1, 64)
	}
	if q.minScore > 0 {
		f["min_score"] = strconv.FormatFloat(q.minScore, 'f', -1, 64)
	}
	return f
}
