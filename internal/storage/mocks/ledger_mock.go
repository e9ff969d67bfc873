package mocks

import (
	"context"
	"sync"

	"github.com/example/ticket-reservation/internal/storage"
)

// MockLedger is an in-memory Ledger for testing.
type MockLedger struct {
	mu        sync.Mutex
	remaining int

	// For tracking calls and forcing errors in tests
	DecrementCalls []int
	RefundCalls    []int
	CurrentErr     error
	DecrementErr   error
	RefundErr      error
}

// NewMockLedger creates a ledger holding the given remaining inventory.
func NewMockLedger(remaining int) *MockLedger {
	return &MockLedger{
		remaining:      remaining,
		DecrementCalls: make([]int, 0),
	}
}

// Current returns the remaining inventory.
func (m *MockLedger) Current(ctx context.Context) (int, error) {
	if m.CurrentErr != nil {
		return 0, m.CurrentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining, nil
}

// Decrement mimics the atomic conditional decrement of the real backends.
func (m *MockLedger) Decrement(ctx context.Context, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecrementCalls = append(m.DecrementCalls, quantity)

	if m.DecrementErr != nil {
		return 0, m.DecrementErr
	}
	if quantity > m.remaining {
		return 0, storage.ErrInsufficientInventory
	}
	m.remaining -= quantity
	return m.remaining, nil
}

// Refund adds quantity back to the remaining inventory.
func (m *MockLedger) Refund(ctx context.Context, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RefundCalls = append(m.RefundCalls, quantity)

	if m.RefundErr != nil {
		return 0, m.RefundErr
	}
	m.remaining += quantity
	return m.remaining, nil
}

// Remaining returns the current value without going through Current.
func (m *MockLedger) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}
