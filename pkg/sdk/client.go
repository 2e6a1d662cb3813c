package locadex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/locadex/internal/app"
	"github.com/kailas-cloud/locadex/internal/config"
	"github.com/kailas-cloud/locadex/internal/domain"
	domanalytics "github.com/kailas-cloud/locadex/internal/domain/analytics"
	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	domlisting "github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/search/result"
	indexinguc "github.com/kailas-cloud/locadex/internal/usecase/indexing"
)

// Внутренние интерфейсы для подмены в тестах.
type searchUseCase interface {
	SemanticSearch(ctx context.Context, q *query.Query) ([]result.Result, error)
	HybridSearch(ctx context.Context, q *query.Query) (result.Hybrid, error)
	FindSimilarListings(ctx context.Context, listingID string, limit int) ([]result.Result, error)
}

type duplicateUseCase interface {
	CheckForDuplicates(ctx context.Context, candidate *domlisting.Listing, ownerUserID string) ([]domdup.Match, error)
}

type indexingUseCase interface {
	IndexListing(ctx context.Context, l domlisting.Listing) error
	Remove(ctx context.Context, listingID string) error
	Reindex(ctx context.Context, batchSize int) (indexinguc.ReindexStats, error)
}

type listingStore interface {
	Upsert(ctx context.Context, l domlisting.Listing) (domlisting.Listing, error)
	ListingByID(ctx context.Context, id string) (domlisting.Listing, error)
}

type interactionRecorder interface {
	RecordInteraction(ctx context.Context, ev domanalytics.InteractionEvent) error
}

// Client is the locadex SDK entry point. It runs the engines in-process
// against the configured stores.
type Client struct {
	search       searchUseCase
	duplicates   duplicateUseCase
	indexer      indexingUseCase
	listings     listingStore
	interactions interactionRecorder
	healthSvc    healthUseCase
	limits       query.Limits
	batchSize    int
	closeFn      func()
	obs          *observer
}

// New connects to every backend and returns a ready Client.
// The provided context bounds the startup checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}
	if len(cc.redisAddrs) == 0 {
		return nil, errors.New("locadex: redis address required (use WithRedis)")
	}
	if cc.embedder == nil && cc.embeddingAPIKey == "" {
		return nil, errors.New("locadex: embedding provider required (use WithOpenAI or WithEmbedder)")
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	cfg := cc.toConfig()
	var buildOpts []app.Option
	if cc.embedder != nil {
		buildOpts = append(buildOpts, app.WithEmbedder(&embedderAdapter{inner: cc.embedder}))
	}

	a, err := app.Build(ctx, &cfg, nil, buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("locadex: %w", err)
	}

	return &Client{
		search:       a.Search,
		duplicates:   a.Duplicates,
		indexer:      a.Indexer,
		listings:     a.Listings,
		interactions: a.Analytics,
		healthSvc:    a.Health,
		limits:       a.Limits,
		batchSize:    cfg.Indexing.BatchSize,
		closeFn:      a.Close,
		obs:          obs,
	}, nil
}

func (cc *clientConfig) toConfig() config.Config {
	var cfg config.Config
	cfg.Redis.Addrs = cc.redisAddrs
	cfg.Redis.Password = cc.redisPassword
	cfg.Listings.Path = cc.listingsPath
	if cc.qdrantAddr != "" {
		cfg.Vector.Backend = config.VectorBackendQdrant
		cfg.Vector.QdrantAddr = cc.qdrantAddr
		cfg.Vector.QdrantCollection = cc.qdrantCollection
	}
	cfg.Vector.HNSWM = cc.hnswM
	cfg.Vector.HNSWEFConstruct = cc.hnswEFConstruct
	cfg.Embedding.APIKey = cc.embeddingAPIKey
	cfg.Embedding.BaseURL = cc.embeddingBaseURL
	cfg.Embedding.Model = cc.embeddingModel
	cfg.Embedding.Dimensions = cc.vectorDimensions
	if cc.embedder != nil {
		cfg.Embedding.Provider = "custom"
	}
	cfg.ApplyDefaults()
	return cfg
}

// Close drains pending analytics writes and releases all connections.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// SemanticSearch ranks active listings by embedding similarity to p.Text.
func (c *Client) SemanticSearch(ctx context.Context, p QueryParams) (_ []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("semantic_search", start, err) }()

	q, err := query.New(p, c.limits)
	if err != nil {
		return nil, err
	}
	return c.search.SemanticSearch(ctx, &q)
}

// HybridSearch merges semantic and keyword retrieval and returns one page.
func (c *Client) HybridSearch(ctx context.Context, p QueryParams) (_ HybridResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("hybrid_search", start, err) }()

	q, err := query.New(p, c.limits)
	if err != nil {
		return HybridResult{}, err
	}
	return c.search.HybridSearch(ctx, &q)
}

// FindSimilarListings returns listings close to listingID. limit <= 0 uses the default.
func (c *Client) FindSimilarListings(ctx context.Context, listingID string, limit int) (_ []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("find_similar", start, err) }()

	if listingID == "" {
		return nil, fmt.Errorf("%w: listing id is required", ErrInvalidQuery)
	}
	return c.search.FindSimilarListings(ctx, listingID, limit)
}

// CheckForDuplicates reports existing listings that look like candidate.
// Callers decide whether to block; see Blocking.
func (c *Client) CheckForDuplicates(
	ctx context.Context, candidate *Listing, ownerUserID string,
) (_ []DuplicateMatch, err error) {
	start := time.Now()
	defer func() { c.obs.observe("check_duplicates", start, err) }()

	return c.duplicates.CheckForDuplicates(ctx, candidate, ownerUserID)
}

// PutListing stores l and refreshes its vector. The stored copy is returned
// even when indexing fails.
func (c *Client) PutListing(ctx context.Context, l *Listing) (_ Listing, err error) {
	start := time.Now()
	defer func() { c.obs.observe("put_listing", start, err) }()

	stored, err := c.listings.Upsert(ctx, *l)
	if err != nil {
		return Listing{}, fmt.Errorf("store listing: %w", err)
	}
	if err := c.indexer.IndexListing(ctx, stored); err != nil {
		return stored, fmt.Errorf("index listing %s: %w", stored.ID, err)
	}
	return stored, nil
}

// GetListing returns a stored listing or ErrNotFound.
func (c *Client) GetListing(ctx context.Context, id string) (_ Listing, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_listing", start, err) }()

	return c.listings.ListingByID(ctx, id)
}

// RemoveListing drops the listing's vector. The stored row is left as is.
func (c *Client) RemoveListing(ctx context.Context, listingID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("remove_listing", start, err) }()

	return c.indexer.Remove(ctx, listingID)
}

// Reindex re-embeds every active listing. batchSize <= 0 uses the default.
func (c *Client) Reindex(ctx context.Context, batchSize int) (_ ReindexStats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex", start, err) }()

	if batchSize <= 0 {
		batchSize = c.batchSize
	}
	return c.indexer.Reindex(ctx, batchSize)
}

// RecordInteraction queues an interaction event. Writes are asynchronous;
// only validation errors are returned.
func (c *Client) RecordInteraction(ctx context.Context, ev Interaction) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("record_interaction", start, err) }()

	return c.interactions.RecordInteraction(ctx, ev)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
