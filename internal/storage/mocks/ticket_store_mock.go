package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ticket-reservation/internal/domain/ticket"
	"github.com/example/ticket-reservation/internal/storage"
)

// MockTicketStore is an in-memory TicketStore for testing. It enforces
// number uniqueness like the real backends.
type MockTicketStore struct {
	mu      sync.Mutex
	tickets map[int]ticket.Ticket

	// For tracking calls and forcing errors in tests
	InsertCalls []ticket.Ticket
	DeleteCalls []int
	InsertErr   error
	NumbersErr  error

	// InsertErrAfter, when positive, makes Insert return InsertErr once that
	// many tickets are stored, simulating a mid-batch failure.
	InsertErrAfter int

	// RejectNumbers forces ErrDuplicateNumber for specific numbers even if
	// they are not stored, simulating a concurrent writer.
	RejectNumbers map[int]bool
}

// NewMockTicketStore creates an empty MockTicketStore.
func NewMockTicketStore() *MockTicketStore {
	return &MockTicketStore{
		tickets:     make(map[int]ticket.Ticket),
		InsertCalls: make([]ticket.Ticket, 0),
	}
}

// Insert stores a ticket, returning storage.ErrDuplicateNumber when the
// number is taken or listed in RejectNumbers.
func (m *MockTicketStore) Insert(ctx context.Context, t *ticket.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls = append(m.InsertCalls, *t)

	if m.InsertErr != nil && m.InsertErrAfter == 0 {
		return m.InsertErr
	}
	if m.InsertErrAfter > 0 && len(m.tickets) >= m.InsertErrAfter {
		return m.InsertErr
	}
	if m.RejectNumbers[t.Number] {
		return storage.ErrDuplicateNumber
	}
	if _, exists := m.tickets[t.Number]; exists {
		return storage.ErrDuplicateNumber
	}
	m.tickets[t.Number] = *t
	return nil
}

// Delete removes the stored ticket, if any.
func (m *MockTicketStore) Delete(ctx context.Context, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, number)
	delete(m.tickets, number)
	return nil
}

// GetByNumber returns the stored ticket or storage.ErrNotFound.
func (m *MockTicketStore) GetByNumber(ctx context.Context, number int) (*ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.tickets[number]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

// ListByEmail returns all stored tickets for the email, ordered by number.
func (m *MockTicketStore) ListByEmail(ctx context.Context, email string) ([]ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ticket.Ticket
	for _, t := range m.tickets {
		if t.OwnerEmail == email {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Numbers returns the set of stored ticket numbers.
func (m *MockTicketStore) Numbers(ctx context.Context) (map[int]struct{}, error) {
	if m.NumbersErr != nil {
		return nil, m.NumbersErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	numbers := make(map[int]struct{}, len(m.tickets))
	for n := range m.tickets {
		numbers[n] = struct{}{}
	}
	return numbers, nil
}

// Count returns the number of stored tickets.
func (m *MockTicketStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}
