// Package store persists guides and screenshot blobs in a local SQLite
// database. Guide records are stored as whole JSON documents: the guide is
// the unit of consistency, and every mutation is a full-record
// read-modify-write by the caller. Blobs are keyed independently and are
// immutable until deleted.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS guides (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    date_created TEXT NOT NULL,
    doc          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blobs (
    key      TEXT PRIMARY KEY,
    guide_id TEXT NOT NULL,
    data     BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blobs_guide ON blobs(guide_id);
`

// Store is the SQLite-backed guide and blob store.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database at path, creating parent
// directories as needed. An unreachable backend here is the one error
// class the rest of the system does not degrade around.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }
