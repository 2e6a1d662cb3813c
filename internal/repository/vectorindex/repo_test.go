package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/locadex/internal/db"
	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

func newRepo(ms *mockStore) *Repo {
	return New(ms, Config{})
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}

	if err := newRepo(ms).EnsureIndex(context.Background(), 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected CreateIndex call")
	}
	if created.Name != "locadex:listings:idx" {
		t.Errorf("index name = %q", created.Name)
	}
	if len(created.Prefixes) != 1 || created.Prefixes[0] != "locadex:vec:" {
		t.Errorf("prefixes = %v", created.Prefixes)
	}
	last := created.Fields[len(created.Fields)-1]
	if last.Type != db.IndexFieldVector || last.VectorDim != 8 ||
		last.VectorAlgo != db.VectorHNSW || last.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", last)
	}
	if last.VectorM != 16 || last.VectorEFConstruct != 200 {
		t.Errorf("expected default HNSW params, got M=%d EF=%d", last.VectorM, last.VectorEFConstruct)
	}
}

func TestEnsureIndex_ExistingIsNoop(t *testing.T) {
	ms := &mockStore{
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			t.Fatal("CreateIndex must not be called")
			return nil
		},
	}
	if err := newRepo(ms).EnsureIndex(context.Background(), 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_RaceOnCreate(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error { return db.ErrIndexExists },
	}
	if err := newRepo(ms).EnsureIndex(context.Background(), 8); err != nil {
		t.Fatalf("ErrIndexExists should be tolerated, got %v", err)
	}
}

func TestEnsureIndex_Flat(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}
	r := New(ms, Config{Algorithm: db.VectorFlat})
	if err := r.EnsureIndex(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Fields[len(created.Fields)-1].VectorAlgo != db.VectorFlat {
		t.Error("expected FLAT vector field")
	}
}

func TestEnsureIndex_BadDim(t *testing.T) {
	if err := newRepo(&mockStore{}).EnsureIndex(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_WritesAllKnownFields(t *testing.T) {
	var key string
	var fields map[string]string
	ms := &mockStore{
		hsetFn: func(_ context.Context, k string, f map[string]string) error {
			key, fields = k, f
			return nil
		},
	}

	e := vector.Entry{
		ID:       "listing_1",
		Values:   []float32{0.1, 0.2},
		Metadata: map[string]string{"listing_id": "1", "category": "bakery"},
	}
	if err := newRepo(ms).Upsert(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "locadex:vec:listing_1" {
		t.Errorf("key = %q", key)
	}
	if fields["category"] != "bakery" || fields["vector_id"] != "listing_1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	for _, f := range []string{"city", "country", "status", "tags", "title", "created_at"} {
		v, ok := fields[f]
		if !ok || v != "" {
			t.Errorf("field %s should be blanked, got %q (present=%v)", f, v, ok)
		}
	}
	if fields["vector"] != db.EncodeVector(e.Values) {
		t.Error("vector blob mismatch")
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ms := &mockStore{indexExistsFn: func(_ context.Context, _ string) (bool, error) { return true, nil }}
	r := newRepo(ms)
	if err := r.EnsureIndex(context.Background(), 3); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	err := r.Upsert(context.Background(), vector.Entry{ID: "listing_1", Values: []float32{1, 2}})
	if !errors.Is(err, domain.ErrInvalidListing) {
		t.Fatalf("expected ErrInvalidListing, got %v", err)
	}
}

func TestUpsert_StoreError(t *testing.T) {
	ms := &mockStore{
		hsetFn: func(_ context.Context, _ string, _ map[string]string) error {
			return &db.Error{Op: db.OpHSet, Err: errors.New("READONLY")}
		},
	}
	err := newRepo(ms).Upsert(context.Background(), vector.Entry{ID: "x", Values: []float32{1}})
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestUpsertBatch_AllOrNothingValidation(t *testing.T) {
	called := false
	ms := &mockStore{
		hsetMultiFn: func(_ context.Context, _ []db.HashSetItem) error {
			called = true
			return nil
		},
	}
	err := newRepo(ms).UpsertBatch(context.Background(), []vector.Entry{
		{ID: "a", Values: []float32{1}},
		{ID: "", Values: []float32{1}},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if called {
		t.Error("nothing should be written when an entry is invalid")
	}
}

func TestUpsertBatch_Success(t *testing.T) {
	var got []db.HashSetItem
	ms := &mockStore{
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			got = items
			return nil
		},
	}
	err := newRepo(ms).UpsertBatch(context.Background(), []vector.Entry{
		{ID: "listing_1", Values: []float32{1}},
		{ID: "listing_2", Values: []float32{2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Key != "locadex:vec:listing_2" {
		t.Errorf("unexpected items: %+v", got)
	}
}

func TestQuery_MapsDistanceAndCaps(t *testing.T) {
	var q *db.KNNQuery
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, in *db.KNNQuery) (*db.SearchResult, error) {
			q = in
			return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
				{Key: "locadex:vec:listing_2", Distance: 0.5, Fields: map[string]string{"vector_id": "listing_2"}},
				{Key: "locadex:vec:listing_1", Distance: 0.1, Fields: map[string]string{"vector_id": "listing_1"}},
				{Key: "locadex:vec:listing_3", Distance: 1.4, Fields: map[string]string{}},
			}}, nil
		},
	}

	matches, err := newRepo(ms).Query(context.Background(), []float32{1, 0}, 2,
		map[string]string{"category": "bakery"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.K != 2 || q.Filters["category"] != "bakery" || q.VectorField != "vector" {
		t.Errorf("unexpected query: %+v", q)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "listing_1" || matches[1].ID != "listing_2" {
		t.Errorf("unexpected order: %s, %s", matches[0].ID, matches[1].ID)
	}
	if d := matches[0].Score - 0.9; d > 1e-9 || d < -1e-9 {
		t.Errorf("score = %v, want 0.9", matches[0].Score)
	}
	if _, ok := matches[0].Metadata["vector_id"]; ok {
		t.Error("vector_id should not leak into metadata")
	}
}

func TestQuery_NegativeSimilarityClamped(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				{Key: "locadex:vec:listing_9", Distance: 1.7, Fields: map[string]string{}},
			}}, nil
		},
	}
	matches, err := newRepo(ms).Query(context.Background(), []float32{1}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches[0].Score != 0 || matches[0].ID != "listing_9" {
		t.Errorf("unexpected match: %+v", matches[0])
	}
}

func TestQuery_Validation(t *testing.T) {
	r := newRepo(&mockStore{})
	ctx := context.Background()

	if _, err := r.Query(ctx, nil, 5, nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("empty vector: expected ErrInvalidQuery, got %v", err)
	}
	if _, err := r.Query(ctx, []float32{1}, 5, map[string]string{"title": "x"}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("unindexed filter: expected ErrInvalidQuery, got %v", err)
	}
	m, err := r.Query(ctx, []float32{1}, 0, nil)
	if err != nil || m != nil {
		t.Errorf("topK=0: got %v, %v", m, err)
	}
}

func TestQuery_MissingIndexIsEmpty(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, db.ErrIndexNotFound
		},
	}
	m, err := newRepo(ms).Query(context.Background(), []float32{1}, 5, nil)
	if err != nil || len(m) != 0 {
		t.Errorf("got %v, %v", m, err)
	}
}

func TestQuery_DeadlinePassesThrough(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, fmt.Errorf("FT.SEARCH: %w", context.DeadlineExceeded)
		},
	}
	_, err := newRepo(ms).Query(context.Background(), []float32{1}, 5, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if errors.Is(err, domain.ErrProviderError) {
		t.Error("deadline must not be classified as provider error")
	}
}

func TestVector_Found(t *testing.T) {
	want := []float32{0.5, -0.5}
	ms := &mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != "locadex:vec:listing_1" {
				t.Errorf("key = %q", key)
			}
			return map[string]string{"vector": db.EncodeVector(want)}, nil
		},
	}
	got, err := newRepo(ms).Vector(context.Background(), "listing_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("got %v", got)
	}
}

func TestVector_NotFound(t *testing.T) {
	_, err := newRepo(&mockStore{}).Vector(context.Background(), "listing_404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByIDs(t *testing.T) {
	var deleted []string
	ms := &mockStore{
		delFn: func(_ context.Context, keys ...string) error {
			deleted = keys
			return nil
		},
	}
	r := newRepo(ms)
	if err := r.DeleteByIDs(context.Background(), []string{"listing_1", "listing_2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != "locadex:vec:listing_1" {
		t.Errorf("deleted = %v", deleted)
	}
	if err := r.DeleteByIDs(context.Background(), nil); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
}

func TestHealthy(t *testing.T) {
	ms := &mockStore{indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil }}
	if err := newRepo(ms).Healthy(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing index, got %v", err)
	}
}
