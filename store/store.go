// Package store persists resolved Wikidata lookups and enrichment run
// summaries in SQLite, so repeated runs over the same source data skip
// lookups that already have an answer.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Resolution represents a row in the resolutions table. Optional entity
// fields are nil when the endpoint did not return them.
type Resolution struct {
	ID           int64    `json:"id"`
	Kind         string   `json:"kind"`
	Label        string   `json:"label"`
	Outcome      string   `json:"outcome"`
	URI          string   `json:"uri,omitempty"`
	MatchedLabel string   `json:"matched_label,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Population   *int64   `json:"population,omitempty"`
	Taxon        string   `json:"taxon,omitempty"`
	Attempts     int      `json:"attempts"`
	ResolvedAt   string   `json:"resolved_at"`
}

// Run represents a row in the enrichment_runs table.
type Run struct {
	ID          string `json:"id"`
	GraphFacts  int    `json:"graph_facts"`
	Places      int    `json:"places"`
	Crops       int    `json:"crops"`
	Queries     int    `json:"queries"`
	CacheHits   int    `json:"cache_hits"`
	Interrupted bool   `json:"interrupted"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at"`
}

// Store wraps the SQLite database for all persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Resolution cache ---

// GetResolution retrieves a cached lookup. A miss returns (nil, nil).
func (s *Store) GetResolution(ctx context.Context, kind, label string) (*Resolution, error) {
	r := &Resolution{}
	var uri, matchedLabel, taxon sql.NullString
	var lon, lat sql.NullFloat64
	var population sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, label, outcome, uri, matched_label, lon, lat, population, taxon, attempts, resolved_at
		FROM resolutions WHERE kind = ? AND label = ?
	`, kind, label).Scan(&r.ID, &r.Kind, &r.Label, &r.Outcome,
		&uri, &matchedLabel, &lon, &lat, &population, &taxon,
		&r.Attempts, &r.ResolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.URI = uri.String
	r.MatchedLabel = matchedLabel.String
	r.Taxon = taxon.String
	if lon.Valid {
		r.Lon = &lon.Float64
	}
	if lat.Valid {
		r.Lat = &lat.Float64
	}
	if population.Valid {
		r.Population = &population.Int64
	}
	return r, nil
}

// UpsertResolution inserts or replaces the cached lookup for (kind, label).
func (s *Store) UpsertResolution(ctx context.Context, r Resolution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (kind, label, outcome, uri, matched_label, lon, lat, population, taxon, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, label) DO UPDATE SET
			outcome = excluded.outcome,
			uri = excluded.uri,
			matched_label = excluded.matched_label,
			lon = excluded.lon,
			lat = excluded.lat,
			population = excluded.population,
			taxon = excluded.taxon,
			attempts = excluded.attempts,
			resolved_at = CURRENT_TIMESTAMP
	`, r.Kind, r.Label, r.Outcome, r.URI, r.MatchedLabel,
		r.Lon, r.Lat, r.Population, r.Taxon, r.Attempts)
	return err
}

// CountResolutions returns cached row counts grouped by outcome.
func (s *Store) CountResolutions(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM resolutions GROUP BY outcome
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// --- Run log ---

// RecordRun inserts an enrichment run summary. A blank ID gets a fresh
// UUID; the stored ID is returned.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt == "" {
		run.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	interrupted := 0
	if run.Interrupted {
		interrupted = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_runs (id, graph_facts, places, crops, queries, cache_hits, interrupted, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.GraphFacts, run.Places, run.Crops, run.Queries, run.CacheHits,
		interrupted, run.StartedAt)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, graph_facts, places, crops, queries, cache_hits, interrupted, started_at, finished_at
		FROM enrichment_runs ORDER BY started_at DESC, finished_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var interrupted int
		if err := rows.Scan(&r.ID, &r.GraphFacts, &r.Places, &r.Crops,
			&r.Queries, &r.CacheHits, &interrupted, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Interrupted = interrupted != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
