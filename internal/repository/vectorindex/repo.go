// Package vectorindex stores listing vectors as hashes behind an FT vector index.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/locadex/internal/db"
	"github.com/kailas-cloud/locadex/internal/domain"
	"github.com/kailas-cloud/locadex/internal/domain/vector"
)

const (
	vectorField = "vector"
	idField     = "vector_id"
)

// tagFields are indexed for equality filters. Order is the schema order.
var tagFields = []string{"listing_id", "category", "city", "country", "status"}

// listFields are indexed as comma-separated TAG lists.
var listFields = []string{"tags"}

// displayFields are stored and returned but not indexed.
var displayFields = []string{"title", "created_at"}

type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig tunes the HNSW graph. Zero values keep server defaults.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config names the index and its key space.
type Config struct {
	IndexName string
	Prefix    string
	Algorithm db.VectorAlgorithm
	HNSW      HNSWConfig
}

// DefaultConfig returns the production layout.
func DefaultConfig() Config {
	return Config{
		IndexName: domain.KeyPrefix + "listings:idx",
		Prefix:    domain.KeyPrefix + "vec:",
		Algorithm: db.VectorHNSW,
		HNSW:      HNSWConfig{M: 16, EFConstruct: 200},
	}
}

// Repo is the vector index adapter over a search-enabled Redis or Valkey.
type Repo struct {
	store store
	cfg   Config
	dim   atomic.Int64
}

// New creates a vector index repository. Empty config fields take defaults.
func New(s store, cfg Config) *Repo {
	def := DefaultConfig()
	if cfg.IndexName == "" {
		cfg.IndexName = def.IndexName
	}
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = def.Algorithm
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the index for dim-sized vectors if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}
	r.dim.Store(int64(dim))

	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return wrapStoreErr("probe index", err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition(dim)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return wrapStoreErr("create index", err)
	}
	return nil
}

func (r *Repo) indexDefinition(dim int) (*db.IndexDefinition, error) {
	b := db.NewIndex(r.cfg.IndexName).
		Prefix(r.cfg.Prefix).
		Tag(tagFields...)
	for _, f := range listFields {
		b = b.TagList(f, ",")
	}
	if r.cfg.Algorithm == db.VectorFlat {
		b = b.VectorFlat(vectorField, dim, db.DistanceCosine)
	} else {
		b = b.VectorHNSW(vectorField, dim, db.DistanceCosine, r.cfg.HNSW.M, r.cfg.HNSW.EFConstruct)
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}
	return def, nil
}

// Healthy reports whether the index is reachable and present.
func (r *Repo) Healthy(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return wrapStoreErr("probe index", err)
	}
	if !exists {
		return fmt.Errorf("%w: index %s", domain.ErrNotFound, r.cfg.IndexName)
	}
	return nil
}

// Upsert writes one entry, replacing every known metadata field.
func (r *Repo) Upsert(ctx context.Context, e vector.Entry) error {
	if err := e.Validate(int(r.dim.Load())); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
	}
	if err := r.store.HSet(ctx, r.key(e.ID), hashFields(&e)); err != nil {
		return wrapStoreErr("upsert "+e.ID, err)
	}
	return nil
}

// UpsertBatch writes all entries in one round-trip. Nothing is written when
// any entry is invalid.
func (r *Repo) UpsertBatch(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dim := int(r.dim.Load())
	items := make([]db.HashSetItem, len(entries))
	for i := range entries {
		if err := entries[i].Validate(dim); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
		}
		items[i] = db.HashSetItem{Key: r.key(entries[i].ID), Fields: hashFields(&entries[i])}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return wrapStoreErr("upsert batch", err)
	}
	return nil
}

// Query returns up to topK nearest entries, best first, restricted by the
// equality filter. Filter keys must be indexed fields.
func (r *Repo) Query(
	ctx context.Context, vec []float32, topK int, filter map[string]string,
) ([]vector.Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidQuery)
	}
	if topK <= 0 {
		return nil, nil
	}
	for k := range filter {
		if !isIndexed(k) {
			return nil, fmt.Errorf("%w: field %q is not filterable", domain.ErrInvalidQuery, k)
		}
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  vectorField,
		Filters:      filter,
		Vector:       vec,
		K:            topK,
		ReturnFields: returnFields(),
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, wrapStoreErr("knn query", err)
	}

	matches := make([]vector.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[idField]
		if id == "" {
			id = strings.TrimPrefix(e.Key, r.cfg.Prefix)
		}
		delete(e.Fields, idField)
		matches = append(matches, vector.Match{
			ID:       id,
			Score:    vector.ScoreFromCosineDistance(e.Distance),
			Metadata: e.Fields,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Vector returns the stored vector for id, or domain.ErrNotFound.
func (r *Repo) Vector(ctx context.Context, id string) ([]float32, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("vector %s: %w", id, domain.ErrNotFound)
		}
		return nil, wrapStoreErr("get vector "+id, err)
	}
	raw, ok := m[vectorField]
	if !ok || raw == "" {
		return nil, fmt.Errorf("vector %s: %w", id, domain.ErrNotFound)
	}
	vec, err := db.DecodeVector(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode vector %s: %w", domain.ErrProviderError, id, err)
	}
	return vec, nil
}

// DeleteByIDs removes entries. Unknown ids are ignored.
func (r *Repo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return wrapStoreErr("delete vectors", err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.cfg.Prefix + id
}

// hashFields blanks every known metadata field the entry omits, so values
// from an earlier write never survive an upsert.
func hashFields(e *vector.Entry) map[string]string {
	fields := make(map[string]string, len(e.Metadata)+len(tagFields)+len(listFields)+len(displayFields)+2)
	for _, group := range [][]string{tagFields, listFields, displayFields} {
		for _, f := range group {
			fields[f] = ""
		}
	}
	for k, v := range e.Metadata {
		fields[k] = v
	}
	fields[idField] = e.ID
	fields[vectorField] = db.EncodeVector(e.Values)
	return fields
}

func returnFields() []string {
	out := make([]string, 0, 1+len(tagFields)+len(listFields)+len(displayFields))
	out = append(out, idField)
	out = append(out, tagFields...)
	out = append(out, listFields...)
	return append(out, displayFields...)
}

func isIndexed(field string) bool {
	return slices.Contains(tagFields, field) || slices.Contains(listFields, field)
}

// wrapStoreErr keeps context errors visible to the caller's timeout handling
// and classifies everything else as a provider failure.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrProviderError, op, err)
}
