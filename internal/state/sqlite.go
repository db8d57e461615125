package state

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// OutputRecord is one published Url.
type OutputRecord struct {
	URL    string
	Hash   string
	Source string
	Edges  []Edge
}

// BuildRecord summarizes one build pass.
type BuildRecord struct {
	ID       string
	Mode     string
	Outcome  string
	Started  time.Time
	Duration time.Duration
	Items    int
	Written  int
	Removed  int
	Errors   int
	Warnings int
}

// Explanation names an output that depends on a path, and the path or Url
// it was reached through.
type Explanation struct {
	URL string
	Via string
}

// Store is the SQLite-backed manifest.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the manifest database at dbPath. Use ":memory:"
// for a throwaway store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		outcome TEXT NOT NULL,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		items INTEGER NOT NULL,
		written INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	CREATE TABLE IF NOT EXISTS outputs (
		url TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		source TEXT,
		edges BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_outputs_source ON outputs(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild appends a build to the history.
func (s *Store) RecordBuild(ctx context.Context, r BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, mode, outcome, started, duration_ms, items, written, removed, errors, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Mode, r.Outcome, r.Started.UnixMilli(), r.Duration.Milliseconds(),
		r.Items, r.Written, r.Removed, r.Errors, r.Warnings,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// Builds returns the most recent builds, newest first.
func (s *Store) Builds(ctx context.Context, limit int) ([]BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, outcome, started, duration_ms, items, written, removed, errors, warnings
		 FROM builds ORDER BY started DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var r BuildRecord
		var started, dur int64
		if err := rows.Scan(&r.ID, &r.Mode, &r.Outcome, &started, &dur,
			&r.Items, &r.Written, &r.Removed, &r.Errors, &r.Warnings); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		r.Started = time.UnixMilli(started)
		r.Duration = time.Duration(dur) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// ReplaceOutputs stores records as the complete set of published Urls.
func (s *Store) ReplaceOutputs(ctx context.Context, records []OutputRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM outputs"); err != nil {
		return fmt.Errorf("clear outputs: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO outputs (url, hash, source, edges) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		blob, err := encodeEdges(r.Edges)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.URL, r.Hash, r.Source, blob); err != nil {
			return fmt.Errorf("insert output %s: %w", r.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Outputs returns every stored record ordered by Url.
func (s *Store) Outputs(ctx context.Context) ([]OutputRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT url, hash, source, edges FROM outputs ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	var out []OutputRecord
	for rows.Next() {
		var r OutputRecord
		var src sql.NullString
		var blob []byte
		if err := rows.Scan(&r.URL, &r.Hash, &src, &blob); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		r.Source = src.String
		if r.Edges, err = decodeEdges(blob); err != nil {
			return nil, fmt.Errorf("output %s: %w", r.URL, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Manifest returns the stored Url hashes.
func (s *Store) Manifest(ctx context.Context) (output.Manifest, error) {
	records, err := s.Outputs(ctx)
	if err != nil {
		return nil, err
	}
	m := make(output.Manifest, len(records))
	for _, r := range records {
		m[r.URL] = r.Hash
	}
	return m, nil
}

// Explain lists the outputs that depend on path, directly through a file
// edge or transitively through item edges. Results are ordered by Url.
func (s *Store) Explain(ctx context.Context, path string) ([]Explanation, error) {
	records, err := s.Outputs(ctx)
	if err != nil {
		return nil, err
	}

	byTarget := make(map[string][]string)
	var out []Explanation
	reached := sets.New[string]()
	var queue []string
	for _, r := range records {
		for _, e := range r.Edges {
			switch {
			case e.Kind == EdgeFile && e.Ref == path:
				if reached.Add(r.URL) {
					out = append(out, Explanation{URL: r.URL, Via: path})
					queue = append(queue, r.URL)
				}
			case e.Kind == EdgeItem:
				byTarget[e.Ref] = append(byTarget[e.Ref], r.URL)
			}
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, dep := range byTarget[u] {
			if reached.Add(dep) {
				out = append(out, Explanation{URL: dep, Via: u})
				queue = append(queue, dep)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
