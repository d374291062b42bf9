// Package sqlite is the sole storage.Transaction/storage.Beginner
// implementation, backed by github.com/ncruces/go-sqlite3 the same way
// beads' own internal/storage/sqlite registers its driver (cmd/bd/doctor.go:
// `_ "github.com/ncruces/go-sqlite3/driver"`, `_ "github.com/ncruces/go-sqlite3/embed"`).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/localcontacts/contactwriter/internal/storage"
)

// Store owns the *sql.DB and satisfies storage.Beginner. A single Store is
// meant to be shared by one writer; concurrent writers across processes are
// explicitly out of scope (multi-writer concurrency across processes is a
// stated non-goal).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at path and applies
// the schema. Pass ":memory:" for an ephemeral database, the same
// convention beads' sqlite tests use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection: ncruces/go-sqlite3 serializes access through one
	// OS thread per *sql.DB connection, and this write path is single-writer
	// by design -- multiple pooled connections would just fight
	// over the same file lock.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for callers that need it outside a transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

const (
	maxBeginRetries   = 5
	initialBeginDelay = 10 * time.Millisecond
)

// BeginTx implements storage.Beginner. If another process holds the file
// lock (SQLITE_BUSY), the begin is retried with exponential backoff before
// the error propagates.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, storage.Committer, error) {
	var lastErr error
	retryDelay := initialBeginDelay

	for attempt := 0; attempt <= maxBeginRetries; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(os.Stderr, "sqlite begin retry (attempt %d/%d) after busy database, waiting %v...\n",
				attempt, maxBeginRetries, retryDelay)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err == nil {
			t := &transaction{tx: tx}
			return t, t, nil
		}
		if !isBusy(err) {
			return nil, nil, wrapDBError("begin transaction", err)
		}
		lastErr = err
	}
	return nil, nil, wrapDBError("begin transaction",
		fmt.Errorf("after %d retries: %w", maxBeginRetries, lastErr))
}
