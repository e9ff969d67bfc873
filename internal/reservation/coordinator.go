// Package reservation implements the reservation coordinator: the state
// machine that validates a request, commits inventory, routes between the
// synchronous and deferred allocation paths, and publishes events for the
// worker and the notifier.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/ticket-reservation/internal/domain/ticket"
	"github.com/example/ticket-reservation/internal/storage"
)

// ErrInvalidRequest covers missing or malformed request fields.
var ErrInvalidRequest = errors.New("invalid request")

// redrawLimit bounds the redraw-and-retry loop when an insert collides with
// a concurrently issued number.
const redrawLimit = 5

// EventPublisher publishes envelopes to the ticket topic. Satisfied by
// kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Request is one incoming reservation. It is never persisted; it exists only
// in flight or as the queued job payload.
type Request struct {
	OwnerName  string `json:"name"`
	OwnerEmail string `json:"email"`
	Quantity   int    `json:"quantity"`
}

func (r Request) validate() error {
	if strings.TrimSpace(r.OwnerName) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.OwnerEmail) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	if r.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidRequest)
	}
	return nil
}

// Status of a completed Reserve call.
type Status string

const (
	// StatusConfirmed means tickets were allocated synchronously.
	StatusConfirmed Status = "confirmed"

	// StatusPending means the reservation was accepted and queued; tickets
	// appear once the worker processes the job.
	StatusPending Status = "pending"
)

// Result of a Reserve call. Tickets is populated only for StatusConfirmed.
type Result struct {
	Status    Status
	Remaining int
	Tickets   []ticket.Ticket
}

// Coordinator drives reservations against the ledger and ticket store.
type Coordinator struct {
	ledger    storage.Ledger
	tickets   storage.TicketStore
	allocator *ticket.Allocator
	publisher EventPublisher
	threshold int
}

// NewCoordinator builds a coordinator. Requests above threshold take the
// deferred path.
func NewCoordinator(
	ledger storage.Ledger,
	tickets storage.TicketStore,
	allocator *ticket.Allocator,
	publisher EventPublisher,
	threshold int,
) *Coordinator {
	return &Coordinator{
		ledger:    ledger,
		tickets:   tickets,
		allocator: allocator,
		publisher: publisher,
		threshold: threshold,
	}
}

// Reserve runs the reservation state machine:
//
//  1. validate the request
//  2. atomically decrement the ledger (fails with
//     storage.ErrInsufficientInventory, nothing mutated)
//  3. above the threshold: publish a deferred job and return pending;
//     inventory is reserved now so no other request can claim it
//  4. otherwise: allocate and persist the tickets, then publish the
//     allocation event for the notifier
//
// The decrement and the ticket writes are one unit: when allocation or
// persistence fails on the synchronous path, any tickets already written are
// removed and the reserved units are refunded to the ledger. Within one
// reservation the ledger commit always precedes ticket creation, and ticket
// creation always precedes notification.
func (c *Coordinator) Reserve(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	remaining, err := c.ledger.Decrement(ctx, req.Quantity)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientInventory) {
			return nil, err
		}
		return nil, fmt.Errorf("commit inventory: %w", err)
	}

	if req.Quantity > c.threshold {
		job := Job{
			ID:                 uuid.New().String(),
			OwnerName:          req.OwnerName,
			OwnerEmail:         req.OwnerEmail,
			Quantity:           req.Quantity,
			RemainingAtEnqueue: remaining,
			EnqueuedAt:         time.Now(),
		}
		if err := c.publish(ctx, job.ID, EventReservationDeferred, job); err != nil {
			// Inventory is already committed; a lost job must surface.
			return nil, fmt.Errorf("enqueue deferred reservation: %w", err)
		}
		return &Result{Status: StatusPending, Remaining: remaining}, nil
	}

	tickets, err := c.allocateAndPersist(ctx, req.OwnerName, req.OwnerEmail, req.Quantity)
	if err != nil {
		c.refund(ctx, req.Quantity)
		return nil, err
	}

	c.publishAllocated(ctx, req.OwnerName, req.OwnerEmail, tickets)

	return &Result{Status: StatusConfirmed, Remaining: remaining, Tickets: tickets}, nil
}

// CompleteDeferred performs the allocation half of a queued reservation.
// The ledger is not touched: the decrement happened at enqueue time, and a
// failed job keeps its units spent until the dead letter is reconciled.
func (c *Coordinator) CompleteDeferred(ctx context.Context, job Job) ([]ticket.Ticket, error) {
	tickets, err := c.allocateAndPersist(ctx, job.OwnerName, job.OwnerEmail, job.Quantity)
	if err != nil {
		return nil, err
	}

	c.publishAllocated(ctx, job.OwnerName, job.OwnerEmail, tickets)
	return tickets, nil
}

// allocateAndPersist draws unique numbers against a fresh snapshot of the
// issued set and persists one ticket per number. A duplicate at insert time
// (stale snapshot under concurrency) triggers a bounded redraw. The batch is
// all-or-nothing: on failure any tickets already written are removed again.
func (c *Coordinator) allocateAndPersist(ctx context.Context, name, email string, quantity int) ([]ticket.Ticket, error) {
	existing, err := c.tickets.Numbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("read issued numbers: %w", err)
	}
	// Own the set: redraws below add to it.
	taken := make(map[int]struct{}, len(existing)+quantity)
	for n := range existing {
		taken[n] = struct{}{}
	}

	numbers, err := c.allocator.Allocate(quantity, taken)
	if err != nil {
		return nil, fmt.Errorf("allocate ticket numbers: %w", err)
	}

	tickets := make([]ticket.Ticket, 0, quantity)
	for _, n := range numbers {
		t := ticket.New(n, name, email)

		err := c.tickets.Insert(ctx, &t)
		for redraws := 0; errors.Is(err, storage.ErrDuplicateNumber); redraws++ {
			if redraws >= redrawLimit {
				c.removeTickets(ctx, tickets)
				return nil, fmt.Errorf("persist ticket: %w", err)
			}
			taken[t.Number] = struct{}{}
			replacement, aerr := c.allocator.Allocate(1, taken)
			if aerr != nil {
				c.removeTickets(ctx, tickets)
				return nil, fmt.Errorf("redraw ticket number: %w", aerr)
			}
			t.Number = replacement[0]
			err = c.tickets.Insert(ctx, &t)
		}
		if err != nil {
			c.removeTickets(ctx, tickets)
			return nil, fmt.Errorf("persist ticket: %w", err)
		}

		taken[t.Number] = struct{}{}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// removeTickets deletes tickets written before a batch failed. Best effort;
// a failed delete is logged and the leftover row only wastes a number.
func (c *Coordinator) removeTickets(ctx context.Context, tickets []ticket.Ticket) {
	for _, t := range tickets {
		if err := c.tickets.Delete(ctx, t.Number); err != nil {
			log.Printf("[Coordinator] Failed to remove ticket %d after batch failure: %v", t.Number, err)
		}
	}
}

// refund returns reserved units to the ledger after a failed synchronous
// allocation, restoring the pre-reservation remaining value.
func (c *Coordinator) refund(ctx context.Context, quantity int) {
	if _, err := c.ledger.Refund(ctx, quantity); err != nil {
		log.Printf("[Coordinator] Failed to refund %d units after allocation failure: %v", quantity, err)
	}
}

// publishAllocated emits the notification event. Tickets are already
// committed; a publish failure is logged, never rolled back.
func (c *Coordinator) publishAllocated(ctx context.Context, name, email string, tickets []ticket.Ticket) {
	numbers := make([]int, len(tickets))
	for i, t := range tickets {
		numbers[i] = t.Number
	}
	payload := TicketsAllocated{
		OwnerName:     name,
		OwnerEmail:    email,
		TicketNumbers: numbers,
		AllocatedAt:   time.Now(),
	}
	if err := c.publish(ctx, email, EventTicketsAllocated, payload); err != nil {
		log.Printf("[Coordinator] Failed to publish allocation event for %s: %v", email, err)
	}
}

func (c *Coordinator) publish(ctx context.Context, key, eventType string, data any) error {
	event, err := NewEvent(eventType, data)
	if err != nil {
		return err
	}
	return c.publisher.Publish(ctx, key, event)
}
