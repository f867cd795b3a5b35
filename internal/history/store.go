// Package history records one row per build in a SQLite database.
//
// The store is optional (enabled by the history_db config key) and every
// failure around it is advisory: a build never fails because its summary
// could not be written.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// BuildSummary is the persisted record of one build.
type BuildSummary struct {
	BuildID   string
	StartedAt time.Time
	Duration  time.Duration
	Rendered  int
	Skipped   int
	Outcome   string
}

// Store persists build summaries.
type Store struct {
	db *sql.DB
}

// Open opens (and initializes) the build history database.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		rendered INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one build summary.
func (s *Store) Record(ctx context.Context, summary BuildSummary) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, started_at, duration_ms, rendered, skipped, outcome) VALUES (?, ?, ?, ?, ?, ?)",
		summary.BuildID, summary.StartedAt.Unix(), summary.Duration.Milliseconds(),
		summary.Rendered, summary.Skipped, summary.Outcome,
	)
	if err != nil {
		return fmt.Errorf("insert build summary: %w", err)
	}
	return nil
}

// Recent returns up to n most recent build summaries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]BuildSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id, started_at, duration_ms, rendered, skipped, outcome FROM builds ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query build summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []BuildSummary
	for rows.Next() {
		var summary BuildSummary
		var startedAt int64
		var durationMS int64
		if err := rows.Scan(&summary.BuildID, &startedAt, &durationMS, &summary.Rendered, &summary.Skipped, &summary.Outcome); err != nil {
			return nil, fmt.Errorf("scan build summary: %w", err)
		}
		summary.StartedAt = time.Unix(startedAt, 0).UTC()
		summary.Duration = time.Duration(durationMS) * time.Millisecond
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
