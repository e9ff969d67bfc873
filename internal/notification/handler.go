// Package notification turns allocation events into confirmation emails.
package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/ticket-reservation/internal/reservation"
)

// Sender delivers a ticket confirmation. Satisfied by email.Service.
type Sender interface {
	SendTicketConfirmation(to, name string, ticketNumbers []int) error
}

// Handler processes TicketsAllocated events from the ticket topic.
type Handler struct {
	sender Sender
}

// NewHandler creates a notification handler.
func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes one message from the ticket topic. Only
// TicketsAllocated events are of interest; everything else belongs to other
// consumer groups.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event reservation.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	if event.EventType != reservation.EventTicketsAllocated {
		return nil
	}

	var allocated reservation.TicketsAllocated
	if err := json.Unmarshal(event.Data, &allocated); err != nil {
		log.Printf("[Notifier] Failed to unmarshal TicketsAllocated event %s: %v", event.ID, err)
		return err
	}

	log.Printf("[Notifier] Sending confirmation to %s for %d tickets", allocated.OwnerEmail, len(allocated.TicketNumbers))

	if err := h.sender.SendTicketConfirmation(allocated.OwnerEmail, allocated.OwnerName, allocated.TicketNumbers); err != nil {
		// Tickets are already committed and queryable; the failure is
		// surfaced for retry by the queue, never rolled back.
		log.Printf("[Notifier] Failed to send email to %s: %v", allocated.OwnerEmail, err)
		return err
	}

	log.Printf("[Notifier] Confirmation email sent to %s", allocated.OwnerEmail)
	return nil
}
