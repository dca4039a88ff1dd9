// Package store is the persistence layer (§4.A): the single-writer
// SQLite-backed relational store of Host and Container rows. Only the
// Infrastructure Service ever opens this file (§5); the package never
// hands callers a *sql.DB or *sql.Tx, only row structs, keeping the
// storage driver swappable without touching any caller.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// Store wraps the sqlite connection pool used by the Infrastructure
// Service. SQLite has no concurrent-writer story, so the pool is capped
// at a single connection and every mutating operation runs inside its own
// short-lived transaction (§4.A: "no long-running transactions cross
// request boundaries"); reads query the connection directly.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_info (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hosts (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	ip             TEXT NOT NULL,
	os             TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'unknown',
	resources      TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '[]',
	metadata       TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	last_heartbeat INTEGER NOT NULL DEFAULT 0,
	is_local       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS containers (
	id          TEXT PRIMARY KEY,
	docker_id   TEXT,
	name        TEXT NOT NULL,
	image       TEXT NOT NULL,
	host_id     TEXT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
	status      TEXT NOT NULL DEFAULT 'created',
	labels      TEXT NOT NULL DEFAULT '',
	ports       TEXT NOT NULL DEFAULT '',
	volumes     TEXT NOT NULL DEFAULT '',
	environment TEXT NOT NULL DEFAULT '',
	command     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	started_at  INTEGER,
	finished_at INTEGER,
	exit_code   INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_containers_host_name_active
	ON containers(host_id, name)
	WHERE status != 'removed';
`

// Open opens (creating if necessary) the sqlite database at path and runs
// the schema migration. Migrations run once, here, under the store's own
// mutex — this is the "global advisory lock" of §4.A, which only needs to
// be in-process since no other service ever opens this file.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("schema migration: %w", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_info`).Scan(&count); err != nil {
		return fmt.Errorf("read schema_info: %w", err)
	}
	if count == 0 {
		if _, err := s.db.Exec(`INSERT INTO schema_info(version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("seed schema_info: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the store's connection is usable, for /health.
func (s *Store) Ping() bool {
	return s.db.Ping() == nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return anvylerrors.Wrap(anvylerrors.Internal, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return anvylerrors.Wrap(anvylerrors.Internal, "commit transaction", err)
	}
	return nil
}
