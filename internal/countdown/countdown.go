// Package countdown tracks the time remaining until the sale closes. It is
// display logic only: nothing in the reservation engine reads it.
package countdown

import (
	"context"
	"errors"
	"time"

	"github.com/example/ticket-reservation/internal/storage"
)

// Service computes seconds remaining against a persisted deadline.
type Service struct {
	store    storage.CountdownStore
	duration time.Duration
	now      func() time.Time
}

// NewService creates a countdown service. duration is the window a reset
// starts from.
func NewService(store storage.CountdownStore, duration time.Duration) *Service {
	return &Service{store: store, duration: duration, now: time.Now}
}

// TimeLeft returns whole seconds until the deadline, never negative. An
// unset deadline is initialized to now+duration on first read.
func (s *Service) TimeLeft(ctx context.Context) (int, error) {
	deadline, err := s.store.Deadline(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		deadline = s.now().Add(s.duration)
		if err := s.store.SetDeadline(ctx, deadline); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	left := deadline.Sub(s.now())
	if left < 0 {
		return 0, nil
	}
	return int(left / time.Second), nil
}

// Reset moves the deadline to now+duration and returns the new time left.
func (s *Service) Reset(ctx context.Context) (int, error) {
	if err := s.store.SetDeadline(ctx, s.now().Add(s.duration)); err != nil {
		return 0, err
	}
	return int(s.duration / time.Second), nil
}
