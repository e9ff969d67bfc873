package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ticket-reservation/internal/domain/ticket"
	"github.com/example/ticket-reservation/internal/storage"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// TicketStore persists issued tickets in PostgreSQL. The primary key on the
// number column is the final authority on ticket-number uniqueness.
type TicketStore struct {
	db *sql.DB
}

func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Insert persists a ticket, mapping a unique violation on the number column
// to storage.ErrDuplicateNumber so the caller can redraw.
func (s *TicketStore) Insert(ctx context.Context, t *ticket.Ticket) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (number, name, email, quantity, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.Number, t.OwnerName, t.OwnerEmail, t.Quantity, t.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return storage.ErrDuplicateNumber
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// Delete removes the ticket with the given number, if it exists.
func (s *TicketStore) Delete(ctx context.Context, number int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE number = $1`, number)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// GetByNumber returns the ticket with the given number or storage.ErrNotFound.
func (s *TicketStore) GetByNumber(ctx context.Context, number int) (*ticket.Ticket, error) {
	var t ticket.Ticket
	err := s.db.QueryRowContext(ctx,
		`SELECT number, name, email, quantity, created_at
		 FROM tickets WHERE number = $1`,
		number,
	).Scan(&t.Number, &t.OwnerName, &t.OwnerEmail, &t.Quantity, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

// ListByEmail returns all tickets owned by the given email, oldest first.
func (s *TicketStore) ListByEmail(ctx context.Context, email string) ([]ticket.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, name, email, quantity, created_at
		 FROM tickets WHERE email = $1
		 ORDER BY created_at ASC, number ASC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets by email: %w", err)
	}
	defer rows.Close()

	var tickets []ticket.Ticket
	for rows.Next() {
		var t ticket.Ticket
		if err := rows.Scan(&t.Number, &t.OwnerName, &t.OwnerEmail, &t.Quantity, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Numbers returns the set of all issued ticket numbers.
func (s *TicketStore) Numbers(ctx context.Context) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT number FROM tickets`)
	if err != nil {
		return nil, fmt.Errorf("list ticket numbers: %w", err)
	}
	defer rows.Close()

	numbers := make(map[int]struct{})
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan ticket number: %w", err)
		}
		numbers[n] = struct{}{}
	}
	return numbers, rows.Err()
}
