package ticket

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// MaxNumber is the upper bound of the ticket number space [1, MaxNumber].
	MaxNumber = 1_000_000

	// DefaultAttemptFactor bounds rejection sampling: an allocation of N
	// numbers gives up after DefaultAttemptFactor*N failed draws.
	DefaultAttemptFactor = 50
)

// Allocator draws unique random ticket numbers by rejection sampling.
// It is a pure generator: callers pass in the set of already-issued numbers
// and are responsible for persisting the result. Uniqueness beyond a single
// call is enforced by the store's unique constraint, not by the allocator.
type Allocator struct {
	Max           int
	AttemptFactor int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocator returns an allocator over the full [1, MaxNumber] space.
func NewAllocator() *Allocator {
	return NewSeededAllocator(time.Now().UnixNano())
}

// NewSeededAllocator returns an allocator with a deterministic source.
func NewSeededAllocator(seed int64) *Allocator {
	return &Allocator{
		Max:           MaxNumber,
		AttemptFactor: DefaultAttemptFactor,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Allocate returns count distinct numbers in [1, Max], none of which appear
// in existing. The existing set is not modified. Returns
// ErrNumberSpaceExhausted when no free candidate is found within the attempt
// budget or the space has fewer than count free numbers left.
func (a *Allocator) Allocate(count int, existing map[int]struct{}) ([]int, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if a.Max-len(existing) < count {
		return nil, ErrNumberSpaceExhausted
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	budget := a.AttemptFactor * count
	drawn := make(map[int]struct{}, count)
	numbers := make([]int, 0, count)

	for attempts := 0; len(numbers) < count; attempts++ {
		if attempts >= budget {
			return nil, ErrNumberSpaceExhausted
		}
		candidate := a.rng.Intn(a.Max) + 1
		if _, taken := existing[candidate]; taken {
			continue
		}
		if _, taken := drawn[candidate]; taken {
			continue
		}
		drawn[candidate] = struct{}{}
		numbers = append(numbers, candidate)
	}

	return numbers, nil
}
