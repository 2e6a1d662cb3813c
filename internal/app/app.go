// Package app wires the locadex components from configuration. The API
// server and the admin CLI share it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/config"
	dbRedis "github.com/kailas-cloud/locadex/internal/db/redis"
	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
	"github.com/kailas-cloud/locadex/internal/metrics"
	analyticsrepo "github.com/kailas-cloud/locadex/internal/repository/analytics"
	"github.com/kailas-cloud/locadex/internal/repository/embcache"
	listingrepo "github.com/kailas-cloud/locadex/internal/repository/listing"
	"github.com/kailas-cloud/locadex/internal/repository/qdrantindex"
	"github.com/kailas-cloud/locadex/internal/repository/vectorindex"
	openaiEmb "github.com/kailas-cloud/locadex/internal/transport/openai"
	analyticsuc "github.com/kailas-cloud/locadex/internal/usecase/analytics"
	duplicateuc "github.com/kailas-cloud/locadex/internal/usecase/duplicate"
	embeddinguc "github.com/kailas-cloud/locadex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/locadex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/locadex/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/locadex/internal/usecase/search"
)

const analyticsDrainTimeout = 5 * time.Second

// VectorIndex is what the engines need from either backend.
type VectorIndex interface {
	EnsureIndex(ctx context.Context, dim int) error
	Healthy(ctx context.Context) error
	Upsert(ctx context.Context, e vector.Entry) error
	UpsertBatch(ctx context.Context, entries []vector.Entry) error
	Query(ctx context.Context, vec []float32, topK int, filter map[string]string) ([]vector.Match, error)
	Vector(ctx context.Context, id string) ([]float32, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// App holds the wired services and the resources they own.
type App struct {
	Config     *config.Config
	Listings   *listingrepo.Store
	Index      VectorIndex
	Embedder   domain.Embedder
	Search     *searchuc.Service
	Duplicates *duplicateuc.Service
	Indexer    *indexinguc.Service
	Analytics  *analyticsuc.Recorder
	Health     *healthuc.Service
	Limits     query.Limits

	closers []func()
	logger  *zap.Logger
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	embedder domain.Embedder
}

// WithEmbedder replaces the configured OpenAI-compatible provider. The cache
// and instrumentation decorators still wrap it.
func WithEmbedder(e domain.Embedder) Option {
	return func(o *buildOptions) { o.embedder = e }
}

// Build connects to every backend and assembles the services. On error,
// anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	var bo buildOptions
	for _, o := range opts {
		o(&bo)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	redis, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, redis.Close)

	if err := redis.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	logger.Info("Connected to redis")

	a.Listings, err = listingrepo.Open(ctx, cfg.Listings.Path)
	if err != nil {
		return nil, fmt.Errorf("open listing store: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.Listings.Close() })

	a.Embedder = buildEmbedder(cfg, bo.embedder, redis, logger)

	a.Index, err = a.openIndex(cfg, redis)
	if err != nil {
		return nil, err
	}
	if err := a.Index.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		return nil, fmt.Errorf("ensure vector index: %w", err)
	}

	sink := analyticsrepo.New(redis, cfg.Analytics.StreamMaxLen)
	a.Analytics, err = analyticsuc.New(sink, analyticsuc.Config{
		Workers:      cfg.Analytics.Workers,
		WriteTimeout: time.Duration(cfg.Analytics.WriteTimeoutMs) * time.Millisecond,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := a.Analytics.Close(analyticsDrainTimeout); err != nil {
			logger.Warn("Analytics drain incomplete", zap.Error(err))
		}
	})

	a.Limits = query.Limits{
		DefaultLimit:    cfg.Search.DefaultLimit,
		MaxLimit:        cfg.Search.MaxLimit,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	}
	a.Search = searchuc.New(a.Index, a.Listings, a.Embedder, a.Analytics, searchuc.Config{
		EmbedTimeout:     time.Duration(cfg.Search.EmbedTimeoutMs) * time.Millisecond,
		VectorTimeout:    time.Duration(cfg.Search.VectorTimeoutMs) * time.Millisecond,
		StoreTimeout:     time.Duration(cfg.Search.StoreTimeoutMs) * time.Millisecond,
		KeywordBaseScore: cfg.Search.KeywordBaseScore,
		Limits:           a.Limits,
	})
	a.Duplicates = duplicateuc.New(a.Listings, duplicateuc.Config{
		Scope:         cfg.Duplicate.Scope,
		MaxCandidates: cfg.Duplicate.MaxCandidates,
		Timeout:       time.Duration(cfg.Duplicate.TimeoutMs) * time.Millisecond,
	})
	a.Indexer = indexinguc.New(a.Index, a.Listings, a.Embedder, indexinguc.Config{
		MaxRetries:  cfg.Indexing.MaxRetries,
		BaseBackoff: time.Duration(cfg.Indexing.BaseBackoffMs) * time.Millisecond,
	})

	deps := healthuc.Deps{
		Database:    a.Listings,
		Cache:       redis,
		VectorIndex: a.Index,
	}
	if hc, ok := a.Embedder.(healthuc.EmbeddingChecker); ok {
		deps.Embedding = hc
	}
	a.Health = healthuc.New(deps)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openIndex(cfg *config.Config, redis *dbRedis.Store) (VectorIndex, error) {
	switch cfg.Vector.Backend {
	case config.VectorBackendQdrant:
		q, err := qdrantindex.Dial(cfg.Vector.QdrantAddr, cfg.Vector.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("dial qdrant: %w", err)
		}
		a.closers = append(a.closers, func() { _ = q.Close() })
		a.logger.Info("Using qdrant vector index", zap.String("addr", cfg.Vector.QdrantAddr))
		return q, nil
	default:
		vcfg := vectorindex.DefaultConfig()
		vcfg.IndexName = cfg.Vector.IndexName
		vcfg.HNSW = vectorindex.HNSWConfig{M: cfg.Vector.HNSWM, EFConstruct: cfg.Vector.HNSWEFConstruct}
		a.logger.Info("Using redis vector index", zap.String("index", vcfg.IndexName))
		return vectorindex.New(redis, vcfg), nil
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented.
// base overrides the OpenAI-compatible provider when non-nil.
func buildEmbedder(
	cfg *config.Config, base domain.Embedder, redis *dbRedis.Store, logger *zap.Logger,
) domain.Embedder {
	if base == nil {
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
	}

	embedder := base
	if cfg.Embedding.CacheTTLSec >= 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLSec) * time.Second
		embedder = embcache.New(base, redis, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger,
	)
}
