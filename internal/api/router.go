package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP router for the ticket engine.
func NewRouter(handlers *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog)

	r.Get("/health", handlers.Health)

	r.Get("/tickets-restantes", handlers.TicketsRemaining)
	r.Post("/create-checkout", handlers.CreateCheckout)
	r.Post("/reduce-ticket", handlers.ReduceTicket)
	r.Get("/ticket-info/{ticketNumber}", handlers.TicketInfo)
	r.Get("/tickets-by-email/{email}", handlers.TicketsByEmail)

	r.Get("/time-left", handlers.TimeLeft)
	r.Post("/reset-time", handlers.ResetTime)

	return r
}

// accessLog logs method, path, status and duration for every request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Printf("[API] %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
