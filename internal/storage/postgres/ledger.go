package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/ticket-reservation/internal/storage"
)

// Ledger tracks remaining inventory in PostgreSQL.
//
// The authoritative value lives in a single-row counter decremented with a
// conditional UPDATE, so two concurrent reservations can never both pass the
// inventory check on the same units. Each decrement also appends a row to
// inventory_snapshots inside the same transaction, keeping an immutable
// audit trail of every remaining value the pool has ever had.
type Ledger struct {
	db       *sql.DB
	capacity int
}

// NewLedger returns a ledger seeded with initialCapacity on first use.
func NewLedger(db *sql.DB, initialCapacity int) *Ledger {
	return &Ledger{db: db, capacity: initialCapacity}
}

// Current returns the remaining inventory.
func (l *Ledger) Current(ctx context.Context) (int, error) {
	var remaining int
	err := l.db.QueryRowContext(ctx,
		`SELECT remaining FROM inventory_counter WHERE id = 1`,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		if err := l.seed(ctx); err != nil {
			return 0, err
		}
		return l.capacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read inventory: %w", err)
	}
	return remaining, nil
}

// Decrement atomically subtracts quantity from the counter and appends a
// snapshot row. Returns storage.ErrInsufficientInventory when the counter
// holds fewer than quantity units; nothing is written in that case.
func (l *Ledger) Decrement(ctx context.Context, quantity int) (int, error) {
	if err := l.seed(ctx); err != nil {
		return 0, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin decrement: %w", err)
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx,
		`UPDATE inventory_counter
		 SET remaining = remaining - $1
		 WHERE id = 1 AND remaining >= $1
		 RETURNING remaining`,
		quantity,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrInsufficientInventory
	}
	if err != nil {
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_snapshots (remaining, created_at) VALUES ($1, $2)`,
		remaining, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("append inventory snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit decrement: %w", err)
	}
	return remaining, nil
}

// Refund adds quantity back to the counter and appends a snapshot row in the
// same transaction, mirroring Decrement.
func (l *Ledger) Refund(ctx context.Context, quantity int) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin refund: %w", err)
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx,
		`UPDATE inventory_counter
		 SET remaining = remaining + $1
		 WHERE id = 1
		 RETURNING remaining`,
		quantity,
	).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("refund inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_snapshots (remaining, created_at) VALUES ($1, $2)`,
		remaining, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("append inventory snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit refund: %w", err)
	}
	return remaining, nil
}

// seed inserts the counter row with the initial capacity if it is missing.
func (l *Ledger) seed(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO inventory_counter (id, remaining) VALUES (1, $1)
		 ON CONFLICT (id) DO NOTHING`,
		l.capacity,
	)
	if err != nil {
		return fmt.Errorf("seed inventory counter: %w", err)
	}
	return nil
}
