package indexing

import (
	"context"

	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

// VectorIndex is the write side of the vector index.
type VectorIndex interface {
	Upsert(ctx context.Context, e vector.Entry) error
	UpsertBatch(ctx context.Context, entries []vector.Entry) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// ListingStore reads the listings that feed the index.
type ListingStore interface {
	ActiveListings(ctx context.Context, scope listing.Scope) ([]listing.Listing, error)
	ListingByID(ctx context.Context, id string) (listing.Listing, error)
}
