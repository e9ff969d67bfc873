package mocks

import (
	"context"
	"sync"
)

// PublishCall records parameters passed to Publish.
type PublishCall struct {
	Key   string
	Event any
}

// MockPublisher records published events for testing.
type MockPublisher struct {
	mu sync.Mutex

	PublishCalls []PublishCall
	PublishErr   error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{PublishCalls: make([]PublishCall, 0)}
}

// Publish records the call and returns PublishErr.
func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCalls = append(m.PublishCalls, PublishCall{Key: key, Event: event})
	return m.PublishErr
}

// Calls returns a copy of the recorded calls.
func (m *MockPublisher) Calls() []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishCall, len(m.PublishCalls))
	copy(out, m.PublishCalls)
	return out
}
