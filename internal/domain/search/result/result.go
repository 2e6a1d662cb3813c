// Package result holds ranked search hits.
package result

import "github.com/kailas-cloud/locadex/internal/domain/listing"

// Source records which retrieval produced a hit.
type Source string

// Result sources.
const (
	SourceSemantic Source = "semantic"
	SourceKeyword  Source = "keyword"
	SourceBoth     Source = "both"
)

// Result is a single ranked listing (SemanticSearchResult).
type Result struct {
	listing   listing.Listing
	score     float64
	relevance float64
	source    Source
}

// New creates a search result.
func New(l listing.Listing, score, relevance float64, source Source) Result {
	return Result{listing: l, score: score, relevance: relevance, source: source}
}

// ID returns the listing identifier.
func (r *Result) ID() string { return r.listing.ID }

// Listing returns the hydrated listing.
func (r *Result) Listing() *listing.Listing { return &r.listing }

// Score returns the raw similarity score in [0,1].
func (r *Result) Score() float64 { return r.score }

// RelevanceScore returns the boosted score in [0,1].
func (r *Result) RelevanceScore() float64 { return r.relevance }

// Source returns where the result came from.
func (r *Result) Source() Source { return r.source }

// WithSource returns a copy with the source replaced.
func (r Result) WithSource(s Source) Result {
	r.source = s
	return r
}

// Hybrid is the response of a hybrid search. CombinedResults holds only the requested page.
type Hybrid struct {
	SemanticResults []Result
	KeywordResults  []Result
	CombinedResults []Result
	TotalResults    int
	Page            int
	PageSize        int
	SearchTimeMs    int64
}
