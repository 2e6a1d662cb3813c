package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/domain/analytics"
	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/search/query"
	"github.com/kailas-cloud/locadex/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/locadex/internal/logger"
	"github.com/kailas-cloud/locadex/internal/metrics"
	healthuc "github.com/kailas-cloud/locadex/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Searcher runs the search flows.
type Searcher interface {
	SemanticSearch(ctx context.Context, q *query.Query) ([]result.Result, error)
	HybridSearch(ctx context.Context, q *query.Query) (result.Hybrid, error)
	FindSimilarListings(ctx context.Context, listingID string, limit int) ([]result.Result, error)
}

// DuplicateChecker flags likely duplicate listings.
type DuplicateChecker interface {
	CheckForDuplicates(ctx context.Context, candidate *listing.Listing, ownerUserID string) ([]domdup.Match, error)
}

// Indexer maintains listing vectors.
type Indexer interface {
	IndexByID(ctx context.Context, listingID string) error
	Remove(ctx context.Context, listingID string) error
}

// InteractionRecorder accepts interaction events.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, ev analytics.InteractionEvent) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Deps are the use cases behind the HTTP surface.
type Deps struct {
	Search       Searcher
	Duplicates   DuplicateChecker
	Indexer      Indexer
	Interactions InteractionRecorder
	Health       HealthChecker
	Limits       query.Limits
	APIKeys      []string
}

// Server is the HTTP API.
type Server struct {
	deps          Deps
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, logger: logger, errorHandlers: defaultErrorHandlers()}
}

// Routes builds the chi router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.deps.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search/semantic", s.SemanticSearch)
		r.Post("/search/hybrid", s.HybridSearch)
		r.Get("/listings/{id}/similar", s.SimilarListings)
		r.Post("/listings/duplicates", s.CheckDuplicates)
		r.Put("/listings/{id}/index", s.IndexListing)
		r.Delete("/listings/{id}/index", s.RemoveListing)
		r.Post("/interactions", s.RecordInteraction)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// SemanticSearch handles POST /v1/search/semantic.
func (s *Server) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	results, err := s.deps.Search.SemanticSearch(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: resultsToDTO(results), Total: len(results)})
}

// HybridSearch handles POST /v1/search/hybrid.
func (s *Server) HybridSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	h, err := s.deps.Search.HybridSearch(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, hybridToDTO(&h))
}

// SimilarListings handles GET /v1/listings/{id}/similar.
func (s *Server) SimilarListings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidQuery, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := s.deps.Search.FindSimilarListings(r.Context(), id, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: resultsToDTO(results), Total: len(results)})
}

// CheckDuplicates handles POST /v1/listings/duplicates.
func (s *Server) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req DuplicateCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidate := req.Listing.Listing()
	matches, err := s.deps.Duplicates.CheckForDuplicates(r.Context(), &candidate, req.UserID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, duplicatesToDTO(matches))
}

// IndexListing handles PUT /v1/listings/{id}/index.
func (s *Server) IndexListing(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Indexer.IndexByID(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveListing handles DELETE /v1/listings/{id}/index.
func (s *Server) RemoveListing(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Indexer.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordInteraction handles POST /v1/interactions.
func (s *Server) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.deps.Interactions.RecordInteraction(r.Context(), analytics.InteractionEvent{
		UserID:          req.UserID,
		ListingID:       req.ListingID,
		Type:            analytics.InteractionType(req.Type),
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (query.Query, bool) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return query.Query{}, false
	}
	q, err := query.New(req.params(), s.deps.Limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return query.Query{}, false
	}
	return q, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	if errors.Is(err, context.Canceled) {
		// client went away; nobody reads the response
		log.Debug("request canceled", zap.Error(err))
		return
	}
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, err)))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
