package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/analytics"
	"github.com/kailas-cloud/locadex/internal/domain/geo"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/search/result"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
	"github.com/kailas-cloud/locadex/internal/logger"
	"github.com/kailas-cloud/locadex/internal/metrics"
)

// DefaultKeywordBaseScore is the score given to keyword-only hits in hybrid results.
const DefaultKeywordBaseScore = 0.5

var tracer = otel.Tracer("github.com/kailas-cloud/locadex/internal/usecase/search")

// Config tunes timeouts and result bounds. Zero timeouts disable the per-call deadline.
type Config struct {
	EmbedTimeout     time.Duration
	VectorTimeout    time.Duration
	StoreTimeout     time.Duration
	KeywordBaseScore float64
	Limits           query.Limits
}

// Service runs semantic, hybrid and "find similar" searches over listings.
type Service struct {
	index VectorIndex
	store ListingStore
	embed Embedder
	rec   Recorder
	cfg   Config
	now   func() time.Time
}

// New creates a search service. rec may be nil.
func New(index VectorIndex, store ListingStore, embed Embedder, rec Recorder, cfg Config) *Service {
	if cfg.KeywordBaseScore <= 0 {
		cfg.KeywordBaseScore = DefaultKeywordBaseScore
	}
	return &Service{index: index, store: store, embed: embed, rec: rec, cfg: cfg, now: time.Now}
}

// SemanticSearch embeds the query, retrieves nearest listings and ranks them by relevance.
func (s *Service) SemanticSearch(ctx context.Context, q *query.Query) ([]result.Result, error) {
	start := time.Now()
	results, err := s.semantic(ctx, q)
	observe(string(analytics.SearchSemantic), start, err)
	if err != nil {
		return nil, err
	}
	s.record(ctx, analytics.SearchEvent{
		UserID: q.UserID(), Query: q.Text(), Type: analytics.SearchSemantic,
		ResultCount: len(results), Filters: q.Filters(),
	})
	return results, nil
}

// HybridSearch runs semantic and keyword retrieval concurrently, merges them by listing id
// and returns the requested page. Any upstream failure fails the whole request.
func (s *Service) HybridSearch(ctx context.Context, q *query.Query) (result.Hybrid, error) {
	start := time.Now()
	if strings.TrimSpace(q.Text()) == "" {
		err := fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
		observe(string(analytics.SearchHybrid), start, err)
		return result.Hybrid{}, err
	}
	ctx, span := tracer.Start(ctx, "search.hybrid")
	defer span.End()

	var semantic, keyword []result.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = s.semantic(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		keyword, err = s.keyword(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		endSpan(span, err)
		observe(string(analytics.SearchHybrid), start, err)
		return result.Hybrid{}, err
	}

	combined := mergeResults(semantic, keyword)
	out := result.Hybrid{
		SemanticResults: semantic,
		KeywordResults:  keyword,
		CombinedResults: paginate(combined, q.Page(), q.PageSize()),
		TotalResults:    len(combined),
		Page:            q.Page(),
		PageSize:        q.PageSize(),
		SearchTimeMs:    time.Since(start).Milliseconds(),
	}
	span.SetAttributes(attribute.Int("search.total_results", out.TotalResults))
	observe(string(analytics.SearchHybrid), start, nil)
	s.record(ctx, analytics.SearchEvent{
		UserID: q.UserID(), Query: q.Text(), Type: analytics.SearchHybrid,
		ResultCount: out.TotalResults, Filters: q.Filters(),
	})
	return out, nil
}

// FindSimilarListings returns listings semantically close to listingID, excluding it.
// The stored vector is used when present, otherwise the listing's searchable text is embedded.
func (s *Service) FindSimilarListings(ctx context.Context, listingID string, limit int) ([]result.Result, error) {
	start := time.Now()
	results, err := s.similar(ctx, listingID, limit)
	observe(string(analytics.SearchSimilar), start, err)
	if err != nil {
		return nil, err
	}
	s.record(ctx, analytics.SearchEvent{
		Query: listingID, Type: analytics.SearchSimilar, ResultCount: len(results),
	})
	return results, nil
}

func (s *Service) semantic(ctx context.Context, q *query.Query) ([]result.Result, error) {
	text := strings.TrimSpace(q.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}

	ctx, span := tracer.Start(ctx, "search.semantic")
	defer span.End()

	vec, err := s.embedText(ctx, text)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	// No vector query for a request that is already gone.
	if err = ctx.Err(); err != nil {
		endSpan(span, err)
		return nil, err
	}

	var filter map[string]string
	if q.Category() != "" {
		filter = map[string]string{"category": q.Category()}
	}
	matches, err := s.queryIndex(ctx, vec, q.Limit(), filter)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	results, err := s.rank(ctx, matches, rankOptions{
		minScore: q.MinScore(),
		criteria: Criteria{Category: q.Category(), Tags: q.Tags()},
		tags:     q.Tags(),
		center:   q.Center(),
		radiusKm: q.RadiusKm(),
		limit:    q.Limit(),
	})
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

func (s *Service) keyword(ctx context.Context, q *query.Query) ([]result.Result, error) {
	ctx, span := tracer.Start(ctx, "search.keyword")
	defer span.End()

	active, err := withTimeout(ctx, s.cfg.StoreTimeout, nil, func(c context.Context) ([]listing.Listing, error) {
		return s.store.ActiveListings(c, listing.Scope{})
	})
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("keyword listings: %w", err)
	}

	hits := make([]listing.Listing, 0)
	for i := range active {
		if matchesKeyword(&active[i], q) {
			hits = append(hits, active[i])
		}
	}
	sortKeyword(hits)
	if len(hits) > q.Limit() {
		hits = hits[:q.Limit()]
	}

	base := s.cfg.KeywordBaseScore
	out := make([]result.Result, len(hits))
	for i := range hits {
		out[i] = result.New(hits[i], base, base, result.SourceKeyword)
	}
	span.SetAttributes(attribute.Int("search.results", len(out)))
	return out, nil
}

func (s *Service) similar(ctx context.Context, listingID string, limit int) ([]result.Result, error) {
	lim := s.limits()
	if limit <= 0 {
		limit = lim.DefaultLimit
	}
	limit = min(limit, lim.MaxLimit)

	ctx, span := tracer.Start(ctx, "search.similar", trace.WithAttributes(attribute.String("listing.id", listingID)))
	defer span.End()

	src, err := withTimeout(ctx, s.cfg.StoreTimeout, nil, func(c context.Context) (listing.Listing, error) {
		return s.store.ListingByID(c, listingID)
	})
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("get listing %s: %w", listingID, err)
	}

	vec, err := s.sourceVector(ctx, &src)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		endSpan(span, err)
		return nil, err
	}

	// One extra candidate because the source listing is usually its own nearest neighbour.
	matches, err := s.queryIndex(ctx, vec, limit+1, nil)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	results, err := s.rank(ctx, matches, rankOptions{
		criteria: Criteria{Category: src.Category, Tags: src.Tags},
		exclude:  src.ID,
		limit:    limit,
	})
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	return results, nil
}

func (s *Service) sourceVector(ctx context.Context, src *listing.Listing) ([]float32, error) {
	vec, err := withTimeout(ctx, s.cfg.VectorTimeout, domain.ErrProviderError, func(c context.Context) ([]float32, error) {
		return s.index.Vector(c, src.VectorID())
	})
	if err == nil && len(vec) > 0 {
		return vec, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("stored vector: %w", err)
	}
	logger.FromContext(ctx).Debug("no stored vector, embedding listing text",
		zap.String("listing_id", src.ID))
	return s.embedText(ctx, listing.SearchableText(src))
}

func (s *Service) embedText(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "search.embed")
	defer span.End()

	res, err := withTimeout(ctx, s.cfg.EmbedTimeout, domain.ErrProviderError, func(c context.Context) (domain.EmbeddingResult, error) {
		return s.embed.Embed(c, text)
	})
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if len(res.Embedding) == 0 {
		err = fmt.Errorf("vectorize query: %w: empty embedding", domain.ErrProviderError)
		endSpan(span, err)
		return nil, err
	}
	return res.Embedding, nil
}

func (s *Service) queryIndex(
	ctx context.Context, vec []float32, topK int, filter map[string]string,
) ([]vector.Match, error) {
	ctx, span := tracer.Start(ctx, "search.vector_query", trace.WithAttributes(attribute.Int("search.top_k", topK)))
	defer span.End()

	matches, err := withTimeout(ctx, s.cfg.VectorTimeout, domain.ErrProviderError, func(c context.Context) ([]vector.Match, error) {
		return s.index.Query(c, vec, topK, filter)
	})
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

type rankOptions struct {
	minScore float64
	criteria Criteria
	tags     []string
	center   *geo.Point
	radiusKm float64
	exclude  string
	limit    int
}

// rank applies the score floor, hydrates, post-filters, scores and sorts.
func (s *Service) rank(ctx context.Context, matches []vector.Match, opts rankOptions) ([]result.Result, error) {
	scores := make(map[string]float64, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Score < opts.minScore {
			continue
		}
		id := listing.ListingID(m.ID)
		if id == opts.exclude {
			continue
		}
		if _, dup := scores[id]; dup {
			continue
		}
		scores[id] = vector.Clamp01(m.Score)
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []result.Result{}, nil
	}

	hctx, span := tracer.Start(ctx, "search.hydrate", trace.WithAttributes(attribute.Int("search.candidates", len(ids))))
	listings, err := withTimeout(hctx, s.cfg.StoreTimeout, nil, func(c context.Context) ([]listing.Listing, error) {
		return s.store.ListingsByIDs(c, ids)
	})
	if err != nil {
		endSpan(span, err)
		span.End()
		return nil, fmt.Errorf("hydrate listings: %w", err)
	}
	span.End()

	now := s.now()
	out := make([]result.Result, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		score, ok := scores[l.ID]
		// Missing, stale or inactive rows are dropped silently.
		if !ok || !l.IsActive() {
			continue
		}
		if opts.center != nil && opts.radiusKm > 0 && !withinRadius(l, *opts.center, opts.radiusKm) {
			continue
		}
		if len(opts.tags) > 0 && !anyTagOverlap(l.Tags, opts.tags) {
			continue
		}
		out = append(out, result.New(*l, score, Relevance(score, l, opts.criteria, now), result.SourceSemantic))
	}
	if dropped := len(ids) - len(listings); dropped > 0 {
		logger.FromContext(ctx).Debug("vector hits without listing", zap.Int("count", dropped))
	}

	sortByRelevance(out)
	if opts.limit > 0 && len(out) > opts.limit {
		out = out[:opts.limit]
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, ev analytics.SearchEvent) {
	if s.rec == nil {
		return
	}
	ev.At = s.now()
	s.rec.RecordSearch(ctx, ev)
}

func (s *Service) limits() query.Limits {
	lim := s.cfg.Limits
	d := query.DefaultLimits()
	if lim.DefaultLimit <= 0 {
		lim.DefaultLimit = d.DefaultLimit
	}
	if lim.MaxLimit <= 0 {
		lim.MaxLimit = d.MaxLimit
	}
	return lim
}

// withTimeout runs f under its own deadline derived from ctx.
// A per-call deadline that fires while ctx is still alive becomes domain.ErrUpstreamTimeout.
// Cancellation of ctx itself surfaces as the context error. Other errors are tagged with
// kind unless they already carry a domain sentinel.
func withTimeout[T any](
	ctx context.Context, d time.Duration, kind error, f func(context.Context) (T, error),
) (T, error) {
	cctx := ctx
	if d > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	v, err := f(cctx)
	if err == nil {
		return v, nil
	}
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return zero, fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	if kind == nil || isDomainError(err) {
		return zero, err
	}
	return zero, fmt.Errorf("%w: %w", kind, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrProviderError) ||
		errors.Is(err, domain.ErrUpstreamTimeout) ||
		errors.Is(err, domain.ErrInvalidQuery)
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func observe(mode string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	metrics.SearchRequestDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrProviderError):
		return "provider_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
