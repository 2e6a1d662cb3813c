package search

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/analytics"
	"github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type mockIndex struct {
	mu         sync.Mutex
	matches    []vector.Match
	queryErr   error
	vectors    map[string][]float32
	vectorErr  error
	queryCalls int
	lastTopK   int
	lastFilter map[string]string
	lastVec    []float32
}

func (m *mockIndex) Query(_ context.Context, vec []float32, topK int, filter map[string]string) ([]vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	m.lastTopK = topK
	m.lastFilter = filter
	m.lastVec = vec
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.matches, nil
}

func (m *mockIndex) Vector(_ context.Context, id string) ([]float32, error) {
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	v, ok := m.vectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

type mockStore struct {
	mu       sync.Mutex
	listings map[string]listing.Listing
	err      error
	byIDs    int
}

func newMockStore(ls ...listing.Listing) *mockStore {
	m := &mockStore{listings: make(map[string]listing.Listing)}
	for _, l := range ls {
		m.listings[l.ID] = l
	}
	return m
}

func (m *mockStore) ActiveListings(_ context.Context, _ listing.Scope) ([]listing.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []listing.Listing
	for _, l := range m.listings {
		if l.IsActive() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockStore) ListingsByIDs(_ context.Context, ids []string) ([]listing.Listing, error) {
	m.mu.Lock()
	m.byIDs++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []listing.Listing
	for _, id := range ids {
		if l, ok := m.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockStore) ListingByID(_ context.Context, id string) (listing.Listing, error) {
	if m.err != nil {
		return listing.Listing{}, m.err
	}
	l, ok := m.listings[id]
	if !ok {
		return listing.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

type mockEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	calls int
	texts []string
	// hook runs before returning; used to block or to cancel the caller.
	hook func(ctx context.Context) error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.hook != nil {
		if err := m.hook(ctx); err != nil {
			return domain.EmbeddingResult{}, err
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockRecorder struct {
	mu     sync.Mutex
	events []analytics.SearchEvent
}

func (m *mockRecorder) RecordSearch(_ context.Context, ev analytics.SearchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func active(id, title string, created time.Time) listing.Listing {
	return listing.Listing{
		ID: id, UserID: "owner-" + id, Title: title,
		Status: listing.StatusActive, CreatedAt: created,
	}
}

func match(id string, score float64) vector.Match {
	return vector.Match{ID: listing.VectorID(id), Score: score}
}

func newTestService(idx *mockIndex, store *mockStore, emb *mockEmbedder, rec *mockRecorder) *Service {
	var r Recorder
	if rec != nil {
		r = rec
	}
	svc := New(idx, store, emb, r, Config{})
	svc.now = func() time.Time { return fixedNow }
	return svc
}
