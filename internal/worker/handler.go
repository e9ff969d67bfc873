// Package worker consumes deferred reservation jobs and performs the same
// allocation sequence as the synchronous path.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/example/ticket-reservation/internal/reservation"
)

// Handler processes ReservationDeferred events from the ticket topic.
type Handler struct {
	coordinator *reservation.Coordinator
	deadLetters reservation.EventPublisher
}

// NewHandler creates a worker handler. Failed jobs are published to
// deadLetters instead of being retried or dropped.
func NewHandler(coordinator *reservation.Coordinator, deadLetters reservation.EventPublisher) *Handler {
	return &Handler{
		coordinator: coordinator,
		deadLetters: deadLetters,
	}
}

// HandleEvent processes one message from the ticket topic. Events other than
// ReservationDeferred belong to other consumer groups and are skipped. A
// message that cannot be decoded is dead-lettered raw: the consumer commits
// the offset either way, so dropping it here would lose the job.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event reservation.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Worker] Failed to unmarshal event: %v", err)
		h.deadLetterRaw(ctx, string(key), value, err)
		return nil
	}

	if event.EventType != reservation.EventReservationDeferred {
		return nil
	}

	var job reservation.Job
	if err := json.Unmarshal(event.Data, &job); err != nil {
		log.Printf("[Worker] Failed to unmarshal job from event %s: %v", event.ID, err)
		h.deadLetterRaw(ctx, event.ID, value, err)
		return nil
	}

	log.Printf("[Worker] Processing job %s: %d tickets for %s", job.ID, job.Quantity, job.OwnerEmail)

	tickets, err := h.coordinator.CompleteDeferred(ctx, job)
	if err != nil {
		// Inventory stays spent (reserved at enqueue); the job and its
		// error go to the dead-letter topic for manual reconciliation.
		log.Printf("[Worker] Job %s failed: %v", job.ID, err)
		h.deadLetter(ctx, job, err)
		return nil
	}

	log.Printf("[Worker] Job %s completed: %d tickets issued to %s", job.ID, len(tickets), job.OwnerEmail)
	return nil
}

func (h *Handler) deadLetter(ctx context.Context, job reservation.Job, cause error) {
	h.publishDeadLetter(ctx, job.ID, reservation.DeadLetter{
		Job:      job,
		Error:    cause.Error(),
		FailedAt: time.Now(),
	})
}

// deadLetterRaw preserves a message that could not be decoded into a job.
func (h *Handler) deadLetterRaw(ctx context.Context, key string, value []byte, cause error) {
	h.publishDeadLetter(ctx, key, reservation.DeadLetter{
		Raw:      string(value),
		Error:    cause.Error(),
		FailedAt: time.Now(),
	})
}

func (h *Handler) publishDeadLetter(ctx context.Context, key string, dead reservation.DeadLetter) {
	event, err := reservation.NewEvent(reservation.EventReservationFailed, dead)
	if err != nil {
		log.Printf("[Worker] Failed to build dead letter %s: %v", key, err)
		return
	}
	if err := h.deadLetters.Publish(ctx, key, event); err != nil {
		log.Printf("[Worker] Failed to publish dead letter %s: %v", key, err)
	}
}
