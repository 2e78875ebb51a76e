package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chapter-quiz-service/internal/infra/sqlite/migrations"
	"chapter-quiz-service/internal/logger"
	_ "modernc.org/sqlite"
)

// Store is the embedded single-file backend. It implements the chapter, score
// and user stores of the app layer. Timestamps are kept as unix nanoseconds.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path with WAL and foreign keys on.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the pragmas below in force and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate applies pending schema migrations and returns their names.
func (s *Store) Migrate(ctx context.Context, log *logger.Logger) ([]string, error) {
	return migrations.Run(ctx, s.db, log.With("backend", "sqlite"))
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for tests and tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
