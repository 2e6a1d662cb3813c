// Package analytics appends analytics events to capped Redis streams.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/locadex/internal/domain"
	domanalytics "github.com/kailas-cloud/locadex/internal/domain/analytics"
)

// DefaultMaxLen bounds each stream to roughly this many entries.
const DefaultMaxLen = 100_000

var (
	searchStream      = domain.KeyPrefix + "events:search"
	interactionStream = domain.KeyPrefix + "events:interaction"
)

type store interface {
	XAdd(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error)
}

// Sink writes events as stream entries.
type Sink struct {
	store  store
	maxLen int64
}

// New creates a stream sink. Non-positive maxLen uses DefaultMaxLen.
func New(s store, maxLen int64) *Sink {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Sink{store: s, maxLen: maxLen}
}

// WriteSearch appends a search event.
func (s *Sink) WriteSearch(ctx context.Context, ev domanalytics.SearchEvent) error {
	filters := "{}"
	if len(ev.Filters) > 0 {
		b, err := json.Marshal(ev.Filters)
		if err != nil {
			return fmt.Errorf("marshal filters: %w", err)
		}
		filters = string(b)
	}

	fields := map[string]string{
		"id":           ev.ID,
		"query":        ev.Query,
		"type":         string(ev.Type),
		"result_count": strconv.Itoa(ev.ResultCount),
		"filters":      filters,
		"at":           ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.UserID != "" {
		fields["user_id"] = ev.UserID
	}

	if _, err := s.store.XAdd(ctx, searchStream, s.maxLen, fields); err != nil {
		return fmt.Errorf("append search event: %w", err)
	}
	return nil
}

// WriteInteraction appends an interaction event.
func (s *Sink) WriteInteraction(ctx context.Context, ev domanalytics.InteractionEvent) error {
	fields := map[string]string{
		"id":         ev.ID,
		"user_id":    ev.UserID,
		"listing_id": ev.ListingID,
		"type":       string(ev.Type),
		"at":         ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.DurationSeconds != nil {
		fields["duration_seconds"] = strconv.Itoa(*ev.DurationSeconds)
	}

	if _, err := s.store.XAdd(ctx, interactionStream, s.maxLen, fields); err != nil {
		return fmt.Errorf("append interaction event: %w", err)
	}
	return nil
}
