// Package api exposes the HTTP surface of the ticket engine.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/example/ticket-reservation/internal/countdown"
	"github.com/example/ticket-reservation/internal/domain/ticket"
	"github.com/example/ticket-reservation/internal/payment"
	"github.com/example/ticket-reservation/internal/reservation"
	"github.com/example/ticket-reservation/internal/storage"
)

type Handlers struct {
	coordinator *reservation.Coordinator
	ledger      storage.Ledger
	tickets     storage.TicketStore
	payments    payment.Provider
	countdown   *countdown.Service
}

func NewHandlers(
	coordinator *reservation.Coordinator,
	ledger storage.Ledger,
	tickets storage.TicketStore,
	payments payment.Provider,
	countdown *countdown.Service,
) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		ledger:      ledger,
		tickets:     tickets,
		payments:    payments,
		countdown:   countdown,
	}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TicketsRemaining returns the current inventory.
//
// GET /tickets-restantes
func (h *Handlers) TicketsRemaining(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.ledger.Current(r.Context())
	if err != nil {
		log.Printf("[API] Failed to read inventory: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"ticketsDisponiveis": remaining})
}

// CreateCheckout opens a payment session for the requested products.
//
// POST /create-checkout
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Products []payment.Product `json:"products"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Products) == 0 {
		respondError(w, http.StatusBadRequest, "products are required")
		return
	}

	var total int64
	for _, product := range req.Products {
		if product.Quantity < 1 {
			respondError(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		if product.Price < 1 {
			respondError(w, http.StatusBadRequest, "price must be positive")
			return
		}
		total += product.Quantity
	}

	remaining, err := h.ledger.Current(r.Context())
	if err != nil {
		log.Printf("[API] Failed to read inventory: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if total > int64(remaining) {
		respondError(w, http.StatusBadRequest, "insufficient inventory")
		return
	}

	url, err := h.payments.CreateCheckoutSession(r.Context(), req.Products)
	if err != nil {
		log.Printf("[API] Failed to create checkout session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ReduceTicket reserves inventory and allocates ticket numbers. Quantities
// above the threshold are accepted and allocated asynchronously.
//
// POST /reduce-ticket
func (h *Handlers) ReduceTicket(w http.ResponseWriter, r *http.Request) {
	var req reservation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.coordinator.Reserve(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrInvalidRequest),
			errors.Is(err, storage.ErrInsufficientInventory):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ticket.ErrNumberSpaceExhausted):
			// Operator attention needed: the number space is running out.
			log.Printf("[API] ALERT: ticket number space exhausted: %v", err)
			respondError(w, http.StatusInternalServerError, err.Error())
		default:
			log.Printf("[API] Reservation failed: %v", err)
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if result.Status == reservation.StatusPending {
		respondJSON(w, http.StatusOK, map[string]any{
			"message":            "accepted, pending",
			"ticketsDisponiveis": result.Remaining,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":            "tickets reserved",
		"ticketsDisponiveis": result.Remaining,
		"tickets":            result.Tickets,
	})
}

// TicketInfo returns the owner of a ticket number.
//
// GET /ticket-info/{ticketNumber}
func (h *Handlers) TicketInfo(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "ticketNumber"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "ticket number must be an integer")
		return
	}

	t, err := h.tickets.GetByNumber(r.Context(), number)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		log.Printf("[API] Failed to get ticket %d: %v", number, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"name":   t.OwnerName,
		"email":  t.OwnerEmail,
		"ticket": t.Number,
	})
}

// TicketsByEmail returns all ticket numbers owned by an email.
//
// GET /tickets-by-email/{email}
func (h *Handlers) TicketsByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	owned, err := h.tickets.ListByEmail(r.Context(), email)
	if err != nil {
		log.Printf("[API] Failed to list tickets for %s: %v", email, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(owned) == 0 {
		respondError(w, http.StatusNotFound, "no tickets for this email")
		return
	}

	numbers := make([]map[string]int, 0, len(owned))
	for _, t := range owned {
		numbers = append(numbers, map[string]int{"ticket": t.Number})
	}
	respondJSON(w, http.StatusOK, map[string]any{"tickets": numbers})
}

// TimeLeft returns seconds until the sale closes.
//
// GET /time-left
func (h *Handlers) TimeLeft(w http.ResponseWriter, r *http.Request) {
	left, err := h.countdown.TimeLeft(r.Context())
	if err != nil {
		log.Printf("[API] Failed to read countdown: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"timeLeft": left})
}

// ResetTime restarts the sale countdown.
//
// POST /reset-time
func (h *Handlers) ResetTime(w http.ResponseWriter, r *http.Request) {
	left, err := h.countdown.Reset(r.Context())
	if err != nil {
		log.Printf("[API] Failed to reset countdown: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"timeLeft": left})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
