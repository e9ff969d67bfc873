package reservation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// EventReservationDeferred carries a Job for the deferred allocation
	// worker. Inventory has already been decremented when it is published.
	EventReservationDeferred = "ReservationDeferred"

	// EventTicketsAllocated is published after tickets are persisted, on
	// both the synchronous and the deferred path. The notifier consumes it.
	EventTicketsAllocated = "TicketsAllocated"

	// EventReservationFailed is the dead-letter envelope type for jobs the
	// worker could not process.
	EventReservationFailed = "ReservationFailed"
)

// Event is the envelope for every message on the ticket topic. Consumers
// filter on EventType; unknown types are skipped so consumer groups can
// share one topic.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent wraps a payload in an envelope.
func NewEvent(eventType string, data any) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New().String(),
		EventType: eventType,
		Data:      jsonData,
		Timestamp: time.Now(),
	}, nil
}

// Job is a queued reservation whose allocation happens asynchronously.
// RemainingAtEnqueue is informational: the authoritative decrement already
// happened when the job was enqueued and must not be re-applied.
type Job struct {
	ID                 string    `json:"id"`
	OwnerName          string    `json:"name"`
	OwnerEmail         string    `json:"email"`
	Quantity           int       `json:"quantity"`
	RemainingAtEnqueue int       `json:"remaining_at_enqueue"`
	EnqueuedAt         time.Time `json:"enqueued_at"`
}

// TicketsAllocated reports the numbers issued for a reservation.
type TicketsAllocated struct {
	OwnerName     string    `json:"name"`
	OwnerEmail    string    `json:"email"`
	TicketNumbers []int     `json:"ticket_numbers"`
	AllocatedAt   time.Time `json:"allocated_at"`
}

// DeadLetter wraps a failed job with the error that killed it. The reserved
// inventory is not refunded; dead letters are reconciled manually. When the
// message could not even be decoded, Raw holds its bytes and Job is empty.
type DeadLetter struct {
	Job      Job       `json:"job"`
	Raw      string    `json:"raw,omitempty"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
