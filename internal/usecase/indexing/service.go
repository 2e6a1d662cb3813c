// Package indexing keeps the vector index in step with the listing store.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
	"github.com/kailas-cloud/locadex/internal/logger"
	"github.com/kailas-cloud/locadex/internal/metrics"
)

// DefaultBatchSize is the Reindex batch size when none is given.
const DefaultBatchSize = 64

// Config tunes retries.
type Config struct {
	MaxRetries  uint64
	BaseBackoff time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseBackoff: 200 * time.Millisecond}
}

// ReindexStats summarizes one Reindex run.
type ReindexStats struct {
	Listings int
	Batches  int
	Tokens   int
}

// Service writes listing embeddings to the vector index.
type Service struct {
	index    VectorIndex
	listings ListingStore
	embedder domain.Embedder
	cfg      Config
}

// New creates an indexing service. Zero config fields take defaults.
func New(index VectorIndex, listings ListingStore, embedder domain.Embedder, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	return &Service{index: index, listings: listings, embedder: embedder, cfg: cfg}
}

// IndexListing embeds the listing's searchable text and upserts it.
// Non-active listings are removed from the index instead.
func (s *Service) IndexListing(ctx context.Context, l listing.Listing) (err error) {
	defer func() { observe("index", err) }()

	if l.ID == "" {
		return fmt.Errorf("%w: listing id is required", domain.ErrInvalidListing)
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
	}
	if !l.IsActive() {
		return s.remove(ctx, l.ID)
	}

	text := listing.SearchableText(&l)
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed listing %s: %w", l.ID, err)
		}
		entry := vector.Entry{ID: l.VectorID(), Values: res.Embedding, Metadata: listing.Metadata(&l)}
		if err := s.index.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("upsert listing %s: %w", l.ID, err)
		}
		return nil
	})
}

// IndexListingBestEffort indexes l and logs any failure. Listing creation
// must not fail because the embedding write did.
func (s *Service) IndexListingBestEffort(ctx context.Context, l listing.Listing) {
	if err := s.IndexListing(ctx, l); err != nil {
		logger.FromContext(logger.WithListing(ctx, l.ID)).Warn("Listing indexing failed",
			zap.Error(err),
		)
	}
}

// IndexByID loads the listing from the store and indexes it.
func (s *Service) IndexByID(ctx context.Context, listingID string) error {
	l, err := s.listings.ListingByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("load listing %s: %w", listingID, err)
	}
	return s.IndexListing(ctx, l)
}

// Remove deletes the listing's vector. Removing an unindexed listing is not an error.
func (s *Service) Remove(ctx context.Context, listingID string) (err error) {
	defer func() { observe("remove", err) }()
	return s.remove(ctx, listingID)
}

func (s *Service) remove(ctx context.Context, listingID string) error {
	if listingID == "" {
		return fmt.Errorf("%w: listing id is required", domain.ErrInvalidListing)
	}
	if err := s.index.DeleteByIDs(ctx, []string{listing.VectorID(listingID)}); err != nil {
		return fmt.Errorf("remove listing %s: %w", listingID, err)
	}
	return nil
}

// Reindex re-embeds every active listing in batches of batchSize.
// A failed batch stops the run; batches already written stay written.
func (s *Service) Reindex(ctx context.Context, batchSize int) (stats ReindexStats, err error) {
	defer func() { observe("reindex", err) }()

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	all, err := s.listings.ActiveListings(ctx, listing.Scope{Limit: -1})
	if err != nil {
		return stats, fmt.Errorf("load active listings: %w", err)
	}

	log := logger.FromContext(ctx)
	for start := 0; start < len(all); start += batchSize {
		batch := all[start:min(start+batchSize, len(all))]

		tokens, err := s.indexBatch(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("reindex batch at %d: %w", start, err)
		}
		stats.Batches++
		stats.Listings += len(batch)
		stats.Tokens += tokens

		log.Debug("Reindexed batch",
			zap.Int("offset", start),
			zap.Int("size", len(batch)),
		)
	}

	log.Info("Reindex complete",
		zap.Int("listings", stats.Listings),
		zap.Int("batches", stats.Batches),
		zap.Int("tokens", stats.Tokens),
	)
	return stats, nil
}

func (s *Service) indexBatch(ctx context.Context, batch []listing.Listing) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = listing.SearchableText(&batch[i])
	}

	var tokens int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		res, err := domain.EmbedMany(ctx, s.embedder, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(res.Embeddings) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d listings",
				domain.ErrProviderError, len(res.Embeddings), len(batch))
		}

		entries := make([]vector.Entry, len(batch))
		for i := range batch {
			entries[i] = vector.Entry{
				ID:       batch[i].VectorID(),
				Values:   res.Embeddings[i],
				Metadata: listing.Metadata(&batch[i]),
			}
		}
		if err := s.index.UpsertBatch(ctx, entries); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		tokens = res.TotalTokens
		return nil
	})
	return tokens, err
}

// withRetry retries fn on provider failures and timeouts with Fibonacci backoff.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewFibonacci(s.cfg.BaseBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if isTransient(err) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrProviderError) ||
		errors.Is(err, domain.ErrUpstreamTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

func observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IndexingTotal.WithLabelValues(op, status).Inc()
}
