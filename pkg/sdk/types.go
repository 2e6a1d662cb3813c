package locadex

import (
	"context"

	domanalytics "github.com/kailas-cloud/locadex/internal/domain/analytics"
	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	"github.com/kailas-cloud/locadex/internal/domain/geo"
	domlisting "github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/search/result"
	indexinguc "github.com/kailas-cloud/locadex/internal/usecase/indexing"
)

// Listing types.
type (
	Listing       = domlisting.Listing
	Location      = domlisting.Location
	ContactInfo   = domlisting.ContactInfo
	ListingStatus = domlisting.Status
)

// Listing statuses. Only active listings are searchable.
const (
	StatusActive   = domlisting.StatusActive
	StatusInactive = domlisting.StatusInactive
	StatusPending  = domlisting.StatusPending
	StatusRejected = domlisting.StatusRejected
)

// Search types.
type (
	Point        = geo.Point
	QueryParams  = query.Params
	Result       = result.Result
	HybridResult = result.Hybrid
)

// DuplicateMatch is a potential duplicate reported by CheckForDuplicates.
type DuplicateMatch = domdup.Match

// BlockingConfidence is the recommended confidence at which to refuse a listing.
const BlockingConfidence = domdup.BlockingConfidence

// Blocking reports whether any match reaches BlockingConfidence.
func Blocking(matches []DuplicateMatch) bool { return domdup.AnyBlocking(matches) }

// Interaction is a user event on a listing.
type Interaction = domanalytics.InteractionEvent

// InteractionType names the kind of interaction.
type InteractionType = domanalytics.InteractionType

// Interaction types.
const (
	InteractionView     = domanalytics.InteractionView
	InteractionClick    = domanalytics.InteractionClick
	InteractionFavorite = domanalytics.InteractionFavorite
	InteractionContact  = domanalytics.InteractionContact
	InteractionShare    = domanalytics.InteractionShare
)

// ReindexStats summarizes a Reindex run.
type ReindexStats = indexinguc.ReindexStats

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
