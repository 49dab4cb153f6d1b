// Package store persists serialized model snapshots in a single
// SQLite file. The file is the unit an operator copies between hosts;
// its contents are opaque to API clients.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// ErrNoSnapshot reports an empty store to callers that need to
// distinguish "never trained" from a read failure.
var ErrNoSnapshot = errors.New("no stored model snapshot")

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS model_snapshots (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    version           TEXT NOT NULL,
    training_samples  INTEGER NOT NULL DEFAULT 0,
    metrics           TEXT NOT NULL DEFAULT '{}',
    blob              BLOB NOT NULL,
    created_at        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_model_snapshots_created_at ON model_snapshots(created_at DESC);
`,
	},
}

// Snapshot is one persisted model: the serialized estimator plus the
// metadata worth inspecting without deserializing it.
type Snapshot struct {
	ID              int64
	Version         string
	TrainingSamples int
	Metrics         string // JSON-encoded validation metrics
	Blob            []byte
	CreatedAt       time.Time
}

// Store wraps the snapshot database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path and
// applies pending migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// A single connection avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Put inserts a snapshot and returns its row ID.
func (s *Store) Put(ctx context.Context, snap Snapshot) (int64, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO model_snapshots (version, training_samples, metrics, blob, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.Version, snap.TrainingSamples, snap.Metrics, snap.Blob, snap.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the most recently stored snapshot, or (nil, nil) when
// the store is empty.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, version, training_samples, metrics, blob, created_at
		 FROM model_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`)

	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.Version, &snap.TrainingSamples, &snap.Metrics, &snap.Blob, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest snapshot: %w", err)
	}
	return &snap, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
