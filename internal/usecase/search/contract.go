package search

import (
	"context"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/analytics"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

// VectorIndex is the read side of the vector index.
type VectorIndex interface {
	Query(ctx context.Context, vec []float32, topK int, filter map[string]string) ([]vector.Match, error)
	// Vector returns the stored vector for id or domain.ErrNotFound.
	Vector(ctx context.Context, id string) ([]float32, error)
}

// ListingStore reads listings from the record store.
type ListingStore interface {
	ActiveListings(ctx context.Context, scope listing.Scope) ([]listing.Listing, error)
	ListingsByIDs(ctx context.Context, ids []string) ([]listing.Listing, error)
	ListingByID(ctx context.Context, id string) (listing.Listing, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Recorder receives search analytics. It must not block.
type Recorder interface {
	RecordSearch(ctx context.Context, ev analytics.SearchEvent)
}
