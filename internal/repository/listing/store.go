// Package listing is the SQLite-backed listing record store.
package listing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/locadex/internal/domain"
	domlisting "github.com/kailas-cloud/locadex/internal/domain/listing"
	"github.com/kailas-cloud/locadex/internal/repository/listing/migrations"
)

// maxIDsPerQuery keeps IN lists under SQLite's bound-variable limit.
const maxIDsPerQuery = 500

const columns = `id, user_id, title, description, category,
	latitude, longitude, address, city, region, country, postal_code,
	email, phone, website, tags, organic, certified, price_range,
	view_count, favorite_count, status, created_at, updated_at`

// Store reads and writes listings in a single SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies pending migrations.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				version, s.now().UTC().Format(time.RFC3339))
			return err
		}); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// ActiveListings returns active listings, most recent first, bounded by scope.
func (s *Store) ActiveListings(ctx context.Context, scope domlisting.Scope) ([]domlisting.Listing, error) {
	var (
		where = []string{"status = ?"}
		args  = []any{string(domlisting.StatusActive)}
	)
	if c := strings.TrimSpace(scope.Country); c != "" {
		clause := "(country = ? COLLATE NOCASE OR country = ''"
		args = append(args, c)
		if city := strings.TrimSpace(scope.City); city != "" {
			clause += " OR city = ? COLLATE NOCASE"
			args = append(args, city)
		}
		where = append(where, clause+")")
	}
	if scope.ExcludeUserID != "" {
		where = append(where, "user_id <> ?")
		args = append(args, scope.ExcludeUserID)
	}
	limit := -1
	if scope.Limit > 0 {
		limit = scope.Limit
	}
	args = append(args, limit)

	q := "SELECT " + columns + " FROM listings WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at DESC, id LIMIT ?"
	return s.query(ctx, q, args...)
}

// ListingsByIDs returns the listings that exist among ids, in input order.
// Status is not filtered; callers decide what to do with inactive ones.
func (s *Store) ListingsByIDs(ctx context.Context, ids []string) ([]domlisting.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[string]domlisting.Listing, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		chunk := ids[start:min(start+maxIDsPerQuery, len(ids))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := "SELECT " + columns + " FROM listings WHERE id IN (" +
			strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + ")"
		rows, err := s.query(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for _, l := range rows {
			byID[l.ID] = l
		}
	}

	out := make([]domlisting.Listing, 0, len(byID))
	seen := make(map[string]bool, len(byID))
	for _, id := range ids {
		if l, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, l)
		}
	}
	return out, nil
}

// ListingByID returns one listing or domain.ErrNotFound.
func (s *Store) ListingByID(ctx context.Context, id string) (domlisting.Listing, error) {
	rows, err := s.query(ctx, "SELECT "+columns+" FROM listings WHERE id = ?", id)
	if err != nil {
		return domlisting.Listing{}, err
	}
	if len(rows) == 0 {
		return domlisting.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return rows[0], nil
}

// Upsert inserts or replaces a listing. An empty ID gets a fresh UUID and
// zero timestamps are filled from the clock. Returns the stored listing.
func (s *Store) Upsert(ctx context.Context, l domlisting.Listing) (domlisting.Listing, error) {
	var out domlisting.Listing
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = s.upsertTx(ctx, tx, l)
		return err
	})
	return out, err
}

// UpsertMany writes all listings in one transaction; any invalid listing
// aborts the whole batch.
func (s *Store) UpsertMany(ctx context.Context, ls []domlisting.Listing) ([]domlisting.Listing, error) {
	out := make([]domlisting.Listing, 0, len(ls))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range ls {
			stored, err := s.upsertTx(ctx, tx, ls[i])
			if err != nil {
				return fmt.Errorf("listing %d: %w", i, err)
			}
			out = append(out, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, l domlisting.Listing) (domlisting.Listing, error) {
	if l.Status == "" {
		l.Status = domlisting.StatusPending
	}
	if err := l.Validate(); err != nil {
		return domlisting.Listing{}, fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
	}
	if l.UserID == "" {
		return domlisting.Listing{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidListing)
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}

	tags, err := json.Marshal(nonNil(l.Tags))
	if err != nil {
		return domlisting.Listing{}, fmt.Errorf("marshal tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO listings (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			address = excluded.address,
			city = excluded.city,
			region = excluded.region,
			country = excluded.country,
			postal_code = excluded.postal_code,
			email = excluded.email,
			phone = excluded.phone,
			website = excluded.website,
			tags = excluded.tags,
			organic = excluded.organic,
			certified = excluded.certified,
			price_range = excluded.price_range,
			view_count = excluded.view_count,
			favorite_count = excluded.favorite_count,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		l.ID, l.UserID, l.Title, l.Description, l.Category,
		l.Location.Latitude, l.Location.Longitude, l.Location.Address, l.Location.City,
		l.Location.Region, l.Location.Country, l.Location.PostalCode,
		l.Contact.Email, l.Contact.Phone, l.Contact.Website,
		string(tags), l.Organic, l.Certified, l.PriceRange,
		l.ViewCount, l.FavoriteCount, string(l.Status),
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return domlisting.Listing{}, fmt.Errorf("upsert listing %s: %w", l.ID, err)
	}
	return l, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domlisting.Listing, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var out []domlisting.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}

func scanListing(rows *sql.Rows) (domlisting.Listing, error) {
	var (
		l                domlisting.Listing
		tags, status     string
		created, updated string
	)
	err := rows.Scan(
		&l.ID, &l.UserID, &l.Title, &l.Description, &l.Category,
		&l.Location.Latitude, &l.Location.Longitude, &l.Location.Address, &l.Location.City,
		&l.Location.Region, &l.Location.Country, &l.Location.PostalCode,
		&l.Contact.Email, &l.Contact.Phone, &l.Contact.Website,
		&tags, &l.Organic, &l.Certified, &l.PriceRange,
		&l.ViewCount, &l.FavoriteCount, &status, &created, &updated,
	)
	if err != nil {
		return domlisting.Listing{}, fmt.Errorf("scan listing: %w", err)
	}
	l.Status = domlisting.Status(status)
	if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
		return domlisting.Listing{}, fmt.Errorf("decode tags of %s: %w", l.ID, err)
	}
	if l.CreatedAt, err = parseTime(created); err != nil {
		return domlisting.Listing{}, fmt.Errorf("created_at of %s: %w", l.ID, err)
	}
	if l.UpdatedAt, err = parseTime(updated); err != nil {
		return domlisting.Listing{}, fmt.Errorf("updated_at of %s: %w", l.ID, err)
	}
	return l, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Timestamps are stored as fixed-width UTC strings so lexical order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
