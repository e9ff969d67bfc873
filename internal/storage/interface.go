// Package storage defines the persistence contracts shared by the PostgreSQL
// and DynamoDB backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/example/ticket-reservation/internal/domain/ticket"
)

var (
	// ErrInsufficientInventory is returned by Decrement when the requested
	// quantity exceeds the remaining inventory. Nothing is mutated.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrDuplicateNumber is returned by Insert when the ticket number is
	// already issued. The store's uniqueness constraint is the final
	// authority; callers redraw and retry.
	ErrDuplicateNumber = errors.New("ticket number already issued")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// Ledger is the single source of truth for remaining inventory.
//
// Decrement is an atomic check-and-decrement: concurrent callers can never
// jointly overdraw the pool. Every successful decrement also appends an
// immutable snapshot of the new remaining value for auditing.
type Ledger interface {
	// Current returns the remaining inventory, seeding the configured
	// initial capacity on first run.
	Current(ctx context.Context) (int, error)

	// Decrement atomically subtracts quantity and returns the new remaining
	// value, or ErrInsufficientInventory without mutating anything.
	Decrement(ctx context.Context, quantity int) (int, error)

	// Refund adds quantity back and returns the new remaining value. Used to
	// compensate a committed decrement when the rest of the reservation
	// cannot complete.
	Refund(ctx context.Context, quantity int) (int, error)
}

// TicketStore is the durable record of issued tickets.
type TicketStore interface {
	// Insert persists a ticket. Returns ErrDuplicateNumber if the number is
	// already taken.
	Insert(ctx context.Context, t *ticket.Ticket) error

	// GetByNumber returns the ticket with the given number or ErrNotFound.
	GetByNumber(ctx context.Context, number int) (*ticket.Ticket, error)

	// Delete removes the ticket with the given number. Deleting a number that
	// was never issued is not an error.
	Delete(ctx context.Context, number int) error

	// ListByEmail returns all tickets owned by the given email, oldest first.
	ListByEmail(ctx context.Context, email string) ([]ticket.Ticket, error)

	// Numbers returns the set of all issued ticket numbers.
	Numbers(ctx context.Context) (map[int]struct{}, error)
}

// CountdownStore persists the sale countdown deadline.
type CountdownStore interface {
	// Deadline returns the stored deadline or ErrNotFound when unset.
	Deadline(ctx context.Context) (time.Time, error)

	// SetDeadline stores the deadline, replacing any previous value.
	SetDeadline(ctx context.Context, deadline time.Time) error
}
