// Package duplicate flags existing listings that likely describe the same place as a new one.
package duplicate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locadex/internal/domain"
	domdup "github.com/kailas-cloud/locadex/internal/domain/duplicate"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/logger"
	"github.com/kailas-cloud/locadex/internal/metrics"
)

// Candidate scopes.
const (
	ScopeCountry = "country"
	ScopeAll     = "all"
)

// DefaultMaxCandidates bounds one check when no limit is configured.
const DefaultMaxCandidates = 5000

// Config bounds the candidate scan.
type Config struct {
	// Scope is ScopeCountry (default) or ScopeAll.
	Scope string
	// MaxCandidates caps the scan to the most recent listings. Negative disables the cap.
	MaxCandidates int
	// Timeout applies to the candidate load. Zero disables it.
	Timeout time.Duration
}

// Service runs duplicate checks.
type Service struct {
	store CandidateStore
	cfg   Config
}

// New creates a duplicate detection service.
func New(store CandidateStore, cfg Config) *Service {
	if cfg.Scope == "" {
		cfg.Scope = ScopeCountry
	}
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	return &Service{store: store, cfg: cfg}
}

// CheckForDuplicates compares candidate against other users' active listings and returns every
// match, strongest first. No matches is an empty slice, not an error.
func (s *Service) CheckForDuplicates(
	ctx context.Context, candidate *listing.Listing, ownerUserID string,
) ([]domdup.Match, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: candidate is required", domain.ErrInvalidListing)
	}
	if ownerUserID == "" {
		return nil, fmt.Errorf("%w: owner user id is required", domain.ErrInvalidListing)
	}

	existing, err := s.loadCandidates(ctx, candidate, ownerUserID)
	if err != nil {
		metrics.DuplicateChecksTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	c := normalize(candidate)
	matches := make([]domdup.Match, 0)
	for i := range existing {
		e := &existing[i]
		// The store scope is a hint; ownership and identity are enforced here.
		if e.UserID == ownerUserID || (candidate.ID != "" && e.ID == candidate.ID) || !e.IsActive() {
			continue
		}
		matches = append(matches, evaluate(c, normalize(e))...)
	}

	slices.SortStableFunc(matches, func(a, b domdup.Match) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	metrics.DuplicateChecksTotal.WithLabelValues(checkStatus(matches)).Inc()
	for _, m := range matches {
		metrics.DuplicateMatchesTotal.WithLabelValues(string(m.MatchType)).Inc()
	}
	logger.FromContext(ctx).Debug("duplicate check",
		zap.Int("candidates", len(existing)),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

func (s *Service) loadCandidates(
	ctx context.Context, candidate *listing.Listing, ownerUserID string,
) ([]listing.Listing, error) {
	scope := listing.Scope{ExcludeUserID: ownerUserID}
	if s.cfg.MaxCandidates > 0 {
		scope.Limit = s.cfg.MaxCandidates
	}
	if s.cfg.Scope == ScopeCountry {
		scope.Country = strings.TrimSpace(candidate.Location.Country)
		scope.City = strings.TrimSpace(candidate.Location.City)
	}

	lctx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	existing, err := s.store.ActiveListings(lctx, scope)
	if err != nil {
		if ctx.Err() == nil && errors.Is(lctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("load candidates: %w: %w", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return existing, nil
}

func checkStatus(matches []domdup.Match) string {
	switch {
	case domdup.AnyBlocking(matches):
		return "blocking"
	case len(matches) > 0:
		return "warning"
	}
	return "clean"
}
