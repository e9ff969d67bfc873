package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/ticket-reservation/internal/storage"
)

// CountdownStore persists the sale countdown deadline in a single row.
type CountdownStore struct {
	db *sql.DB
}

func NewCountdownStore(db *sql.DB) *CountdownStore {
	return &CountdownStore{db: db}
}

// Deadline returns the stored deadline or storage.ErrNotFound when unset.
func (s *CountdownStore) Deadline(ctx context.Context) (time.Time, error) {
	var deadline time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT deadline FROM countdown WHERE id = 1`,
	).Scan(&deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read countdown: %w", err)
	}
	return deadline, nil
}

// SetDeadline stores the deadline, replacing any previous value.
func (s *CountdownStore) SetDeadline(ctx context.Context, deadline time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO countdown (id, deadline) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET deadline = EXCLUDED.deadline`,
		deadline,
	)
	if err != nil {
		return fmt.Errorf("set countdown: %w", err)
	}
	return nil
}
