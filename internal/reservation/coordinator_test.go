package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ticket-reservation/internal/domain/ticket"
	"github.com/example/ticket-reservation/internal/storage"
	"github.com/example/ticket-reservation/internal/storage/mocks"
)

const testThreshold = 200

func newTestCoordinator(capacity int) (*Coordinator, *mocks.MockLedger, *mocks.MockTicketStore, *mocks.MockPublisher) {
	ledger := mocks.NewMockLedger(capacity)
	tickets := mocks.NewMockTicketStore()
	publisher := mocks.NewMockPublisher()
	coordinator := NewCoordinator(ledger, tickets, ticket.NewSeededAllocator(1), publisher, testThreshold)
	return coordinator, ledger, tickets, publisher
}

func eventOfType(t *testing.T, publisher *mocks.MockPublisher, eventType string) Event {
	t.Helper()
	for _, call := range publisher.Calls() {
		event, ok := call.Event.(Event)
		if ok && event.EventType == eventType {
			return event
		}
	}
	t.Fatalf("no %s event published", eventType)
	return Event{}
}

func decodeJob(t *testing.T, event Event) Job {
	t.Helper()
	var job Job
	require.NoError(t, json.Unmarshal(event.Data, &job))
	return job
}

// ============================================
// Validation Tests
// ============================================

func TestCoordinator_Reserve_MissingName(t *testing.T) {
	coordinator, ledger, _, _ := newTestCoordinator(100)
	ctx := context.Background()

	_, err := coordinator.Reserve(ctx, Request{OwnerName: "  ", OwnerEmail: "a@x.com", Quantity: 1})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, ledger.DecrementCalls)
}

func TestCoordinator_Reserve_MissingEmail(t *testing.T) {
	coordinator, ledger, _, _ := newTestCoordinator(100)
	ctx := context.Background()

	_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "", Quantity: 1})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, ledger.DecrementCalls)
}

func TestCoordinator_Reserve_NonPositiveQuantity(t *testing.T) {
	coordinator, ledger, _, _ := newTestCoordinator(100)
	ctx := context.Background()

	for _, quantity := range []int{0, -1} {
		_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: quantity})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.Empty(t, ledger.DecrementCalls)
}

// ============================================
// Inventory Tests
// ============================================

func TestCoordinator_Reserve_InsufficientInventory(t *testing.T) {
	coordinator, ledger, tickets, publisher := newTestCoordinator(5)
	ctx := context.Background()

	_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 10})

	assert.ErrorIs(t, err, storage.ErrInsufficientInventory)
	assert.Equal(t, 5, ledger.Remaining(), "inventory must be untouched")
	assert.Zero(t, tickets.Count())
	assert.Empty(t, publisher.Calls())
}

// ============================================
// Immediate Path Tests
// ============================================

func TestCoordinator_Reserve_ImmediatePath(t *testing.T) {
	coordinator, ledger, tickets, publisher := newTestCoordinator(20000)
	ctx := context.Background()

	result, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 3})

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Equal(t, 19997, result.Remaining)
	require.Len(t, result.Tickets, 3)

	seen := make(map[int]struct{})
	for _, tk := range result.Tickets {
		assert.Equal(t, "Ana", tk.OwnerName)
		assert.Equal(t, "a@x.com", tk.OwnerEmail)
		assert.Equal(t, 1, tk.Quantity)
		assert.GreaterOrEqual(t, tk.Number, 1)
		assert.LessOrEqual(t, tk.Number, ticket.MaxNumber)
		_, dup := seen[tk.Number]
		assert.False(t, dup, "duplicate number %d", tk.Number)
		seen[tk.Number] = struct{}{}
	}

	// Conservation: capacity - remaining == issued quantity.
	assert.Equal(t, 20000-ledger.Remaining(), tickets.Count())

	event := eventOfType(t, publisher, EventTicketsAllocated)
	assert.NotEmpty(t, event.ID)
}

func TestCoordinator_Reserve_Conservation(t *testing.T) {
	coordinator, ledger, tickets, _ := newTestCoordinator(100)
	ctx := context.Background()

	for _, quantity := range []int{3, 7, 1, 12} {
		_, err := coordinator.Reserve(ctx, Request{OwnerName: "Bea", OwnerEmail: "b@x.com", Quantity: quantity})
		require.NoError(t, err)
	}

	assert.Equal(t, 100-23, ledger.Remaining())
	assert.Equal(t, 23, tickets.Count())
}

func TestCoordinator_Reserve_RedrawsOnDuplicateInsert(t *testing.T) {
	coordinator, _, tickets, _ := newTestCoordinator(100)
	ctx := context.Background()

	// Reject the first numbers the seeded allocator will draw, simulating a
	// concurrent writer landing on them between snapshot and insert.
	preview, err := ticket.NewSeededAllocator(1).Allocate(2, nil)
	require.NoError(t, err)
	tickets.RejectNumbers = map[int]bool{preview[0]: true, preview[1]: true}

	result, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 2})

	require.NoError(t, err)
	require.Len(t, result.Tickets, 2)
	for _, tk := range result.Tickets {
		assert.False(t, tickets.RejectNumbers[tk.Number], "redraw must avoid the colliding number")
	}
	assert.Equal(t, 2, tickets.Count())
}

func TestCoordinator_Reserve_StorageFailure(t *testing.T) {
	coordinator, ledger, tickets, publisher := newTestCoordinator(100)
	ctx := context.Background()

	storeDown := errors.New("connection refused")
	tickets.InsertErr = storeDown

	_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 5})

	assert.ErrorIs(t, err, storeDown)
	assert.Equal(t, 100, ledger.Remaining(), "reserved units refunded when persistence fails")
	assert.Zero(t, tickets.Count())
	assert.Empty(t, publisher.Calls(), "no allocation event after a failed persist")
}

func TestCoordinator_Reserve_PartialPersistFailureRollsBack(t *testing.T) {
	coordinator, ledger, tickets, publisher := newTestCoordinator(100)
	ctx := context.Background()

	storeDown := errors.New("connection refused")
	tickets.InsertErr = storeDown
	tickets.InsertErrAfter = 3

	_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 5})

	assert.ErrorIs(t, err, storeDown)
	assert.Zero(t, tickets.Count(), "tickets written before the failure are removed")
	assert.Len(t, tickets.DeleteCalls, 3)
	assert.Equal(t, 100, ledger.Remaining(), "full quantity refunded, not just the unpersisted part")
	assert.Empty(t, publisher.Calls())
}

func TestCoordinator_Reserve_ExhaustedNumberSpace(t *testing.T) {
	ledger := mocks.NewMockLedger(100)
	tickets := mocks.NewMockTicketStore()
	publisher := mocks.NewMockPublisher()

	allocator := ticket.NewSeededAllocator(1)
	allocator.Max = 2
	coordinator := NewCoordinator(ledger, tickets, allocator, publisher, testThreshold)

	ctx := context.Background()
	_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 3})

	assert.ErrorIs(t, err, ticket.ErrNumberSpaceExhausted)
	assert.Equal(t, 100, ledger.Remaining(), "reserved units refunded when allocation fails")
}

// ============================================
// Deferred Path Tests
// ============================================

func TestCoordinator_Reserve_DeferredPath(t *testing.T) {
	coordinator, ledger, tickets, publisher := newTestCoordinator(20000)
	ctx := context.Background()

	result, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 250})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, 19750, result.Remaining, "inventory reserved at enqueue time")
	assert.Equal(t, 19750, ledger.Remaining())
	assert.Empty(t, result.Tickets)
	assert.Zero(t, tickets.Count(), "no tickets until the worker runs")

	event := eventOfType(t, publisher, EventReservationDeferred)
	job := decodeJob(t, event)
	assert.Equal(t, "Ana", job.OwnerName)
	assert.Equal(t, "a@x.com", job.OwnerEmail)
	assert.Equal(t, 250, job.Quantity)
	assert.Equal(t, 19750, job.RemainingAtEnqueue)
}

func TestCoordinator_Reserve_ThresholdBoundaryIsSynchronous(t *testing.T) {
	coordinator, _, _, _ := newTestCoordinator(20000)
	ctx := context.Background()

	result, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: testThreshold})

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Len(t, result.Tickets, testThreshold)
}

func TestCoordinator_Reserve_EnqueueFailureSurfaces(t *testing.T) {
	coordinator, _, _, publisher := newTestCoordinator(20000)
	ctx := context.Background()

	queueDown := errors.New("broker unavailable")
	publisher.PublishErr = queueDown

	_, err := coordinator.Reserve(ctx, Request{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 500})

	assert.ErrorIs(t, err, queueDown)
}

// ============================================
// CompleteDeferred Tests
// ============================================

func TestCoordinator_CompleteDeferred_AllocatesWithoutTouchingLedger(t *testing.T) {
	coordinator, ledger, tickets, publisher := newTestCoordinator(100)
	ctx := context.Background()

	job := Job{ID: "job-1", OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 5, RemainingAtEnqueue: 95}

	issued, err := coordinator.CompleteDeferred(ctx, job)

	require.NoError(t, err)
	assert.Len(t, issued, 5)
	assert.Equal(t, 5, tickets.Count())
	assert.Empty(t, ledger.DecrementCalls, "decrement already happened at enqueue")

	event := eventOfType(t, publisher, EventTicketsAllocated)
	assert.NotEmpty(t, event.Data)
}

func TestCoordinator_CompleteDeferred_FailureDoesNotRefund(t *testing.T) {
	coordinator, ledger, tickets, _ := newTestCoordinator(100)
	ctx := context.Background()

	tickets.NumbersErr = errors.New("connection refused")

	_, err := coordinator.CompleteDeferred(ctx, Job{ID: "job-1", OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 5})

	// Deferred units stay spent; the caller dead-letters the job and the
	// reconciliation happens there, not in the ledger.
	assert.Error(t, err)
	assert.Empty(t, ledger.RefundCalls)
}

func TestCoordinator_CompleteDeferred_AvoidsExistingNumbers(t *testing.T) {
	coordinator, _, tickets, _ := newTestCoordinator(100)
	ctx := context.Background()

	first, err := coordinator.CompleteDeferred(ctx, Job{OwnerName: "Ana", OwnerEmail: "a@x.com", Quantity: 50})
	require.NoError(t, err)
	second, err := coordinator.CompleteDeferred(ctx, Job{OwnerName: "Bea", OwnerEmail: "b@x.com", Quantity: 50})
	require.NoError(t, err)

	seen := make(map[int]struct{})
	for _, tk := range append(first, second...) {
		_, dup := seen[tk.Number]
		assert.False(t, dup, "duplicate number %d across jobs", tk.Number)
		seen[tk.Number] = struct{}{}
	}
	assert.Equal(t, 100, tickets.Count())
}
