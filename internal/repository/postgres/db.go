package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/gmarches/s3catalog/internal/config"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB creates a new database connection pool.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(10), // Limit to 10 concurrent operations
	}, nil
}

// EnsureSchema creates the catalog and audit tables if they do not
// exist. scan_date is TEXT holding ISO dates, which sort the same
// lexicographically and chronologically, matching the index contract.
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalog_entries (
			path          TEXT NOT NULL,
			scan_date     TEXT NOT NULL,
			size_bytes    BIGINT NOT NULL DEFAULT 0,
			last_modified TIMESTAMPTZ NOT NULL,
			etag          TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (path, scan_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_entries_scan_date
			ON catalog_entries (scan_date DESC, path)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id        TEXT PRIMARY KEY,
			ts        DOUBLE PRECISION NOT NULL,
			operation TEXT NOT NULL,
			details   JSONB NOT NULL DEFAULT '{}',
			status    TEXT NOT NULL
		)`,
	}
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not ensure schema: %w", err)
	}
	return nil
}

// WithTx executes a function within a transaction.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
