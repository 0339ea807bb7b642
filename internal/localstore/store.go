// Package localstore owns the per-install sqlite database. It holds the
// persisted session tokens and the tools-connection flags, behind small
// typed repositories.
package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/possamhq/possam/internal/localstore/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite handle backing all local persistence.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at dsn and applies
// any pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// DB exposes the underlying handle for repositories.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
