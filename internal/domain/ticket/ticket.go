package ticket

import (
	"errors"
	"time"
)

var (
	ErrNumberSpaceExhausted = errors.New("ticket number space exhausted")
	ErrInvalidCount         = errors.New("count must be positive")
)

// Ticket is one issued ticket. Every ticket carries exactly one numbered
// admission (Quantity is always 1); a purchase of N tickets produces N rows.
type Ticket struct {
	Number     int       `json:"ticket"`
	OwnerName  string    `json:"name"`
	OwnerEmail string    `json:"email"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

// New returns a ticket bound to an owner. Quantity is fixed at 1.
func New(number int, ownerName, ownerEmail string) Ticket {
	return Ticket{
		Number:     number,
		OwnerName:  ownerName,
		OwnerEmail: ownerEmail,
		Quantity:   1,
		CreatedAt:  time.Now(),
	}
}
