// Package ledger tracks which sentence files have been ingested, so repeated
// ingest runs are idempotent across process restarts.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry records one ingested source file.
type Entry struct {
	Path       string
	Checksum   string
	Sentences  int64
	IngestedAt time.Time
}

// Ledger is a SQLite-backed record of ingested sources.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		sentences INTEGER NOT NULL,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the entry for path, or nil when the path has not been ingested.
func (l *Ledger) Get(ctx context.Context, path string) (*Entry, error) {
	var e Entry
	err := l.db.QueryRowContext(ctx,
		`SELECT path, checksum, sentences, ingested_at FROM sources WHERE path = ?`, path,
	).Scan(&e.Path, &e.Checksum, &e.Sentences, &e.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Put inserts or replaces the entry for e.Path.
func (l *Ledger) Put(ctx context.Context, e *Entry) error {
	if e.IngestedAt.IsZero() {
		e.IngestedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sources (path, checksum, sentences, ingested_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   checksum = excluded.checksum,
		   sentences = excluded.sentences,
		   ingested_at = excluded.ingested_at`,
		e.Path, e.Checksum, e.Sentences, e.IngestedAt,
	)
	return err
}

// Delete removes the entry for path. Missing paths are not an error.
func (l *Ledger) Delete(ctx context.Context, path string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, path)
	return err
}

// List returns all entries ordered by path.
func (l *Ledger) List(ctx context.Context) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, checksum, sentences, ingested_at FROM sources ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Checksum, &e.Sentences, &e.IngestedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded sources.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
