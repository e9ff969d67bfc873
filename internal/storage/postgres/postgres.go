// Package postgres implements the storage contracts on PostgreSQL using
// database/sql with lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Connect establishes a connection to PostgreSQL.
func Connect(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the tables if they do not exist and seeds the
// inventory counter with the initial capacity on first run.
func EnsureSchema(ctx context.Context, db *sql.DB, initialCapacity int) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory_counter (
			id        INTEGER PRIMARY KEY,
			remaining INTEGER NOT NULL CHECK (remaining >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_snapshots (
			id         BIGSERIAL PRIMARY KEY,
			remaining  INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			number     INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			quantity   INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tickets_email_idx ON tickets (email)`,
		`CREATE TABLE IF NOT EXISTS countdown (
			id       INTEGER PRIMARY KEY,
			deadline TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO inventory_counter (id, remaining) VALUES (1, $1)
		 ON CONFLICT (id) DO NOTHING`,
		initialCapacity,
	)
	if err != nil {
		return fmt.Errorf("seed inventory counter: %w", err)
	}
	return nil
}
