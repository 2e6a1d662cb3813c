package duplicate

import (
	"context"

	"github.com/kailas-cloud/locadex/internal/domain/listing"
)

// CandidateStore loads the active listings a new listing is compared against.
type CandidateStore interface {
	ActiveListings(ctx context.Context, scope listing.Scope) ([]listing.Listing, error)
}
