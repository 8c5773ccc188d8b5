package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SaveUnit(context.Background(), &domain.BookableUnit{
		ID:          "room",
		OwnerID:     "hotel",
		Kind:        domain.KindNightly,
		Granularity: domain.PerNight,
		Capacity:    4,
	}))
	return store
}

func nights(from, to int) interval.Interval {
	return interval.Interval{Start: start.AddDate(0, 0, from), End: start.AddDate(0, 0, to)}
}

// holdIfFree reserves qty when it fits, mirroring what the ledger does.
func holdIfFree(id string, qty int, iv interval.Interval) HoldFunc {
	return func(unit *domain.BookableUnit, committed int) (*domain.Reservation, []domain.OutboxEvent, error) {
		if unit.Capacity-committed < qty {
			return nil, nil, &domain.CapacityExceededError{UnitID: unit.ID, Requested: qty, Remaining: unit.Capacity - committed}
		}
		res := &domain.Reservation{
			ID:            id,
			BookingNumber: "NGT-" + id,
			UnitID:        unit.ID,
			Interval:      iv,
			Occupied:      iv,
			Quantity:      qty,
			Status:        domain.StatusPending,
			CreatedAt:     start,
		}
		ev := domain.OutboxEvent{EventID: "ev-" + id, AggregateID: id, EventType: domain.EventReservationCreated, Payload: []byte(`{}`)}
		return res, []domain.OutboxEvent{ev}, nil
	}
}

func TestMemoryStore_Hold_Success(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	res, err := store.Hold(ctx, "room", nights(0, 3), holdIfFree("r1", 3, nights(0, 3)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)

	committed, err := store.CommittedQuantity(ctx, "room", nights(2, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, committed)

	committed, err = store.CommittedQuantity(ctx, "room", nights(3, 5))
	require.NoError(t, err)
	assert.Equal(t, 0, committed, "adjacent stays do not overlap")

	events, err := store.GetUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "r1", events[0].AggregateID)
}

func TestMemoryStore_Hold_RefusedWritesNothing(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Hold(ctx, "room", nights(0, 1), holdIfFree("big", 5, nights(0, 1)))
	var ce *domain.CapacityExceededError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 4, ce.Remaining)

	_, err = store.GetReservation(ctx, "big")
	assert.ErrorIs(t, err, ErrReservationNotFound)
	events, _ := store.GetUnpublishedEvents(ctx, 10)
	assert.Empty(t, events)
}

func TestMemoryStore_Hold_UnitNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.Hold(context.Background(), "missing", nights(0, 1), holdIfFree("x", 1, nights(0, 1)))
	assert.ErrorIs(t, err, ErrUnitNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_Hold_DuplicateBookingNumber(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Hold(ctx, "room", nights(0, 1), holdIfFree("same", 1, nights(0, 1)))
	require.NoError(t, err)

	_, err = store.Hold(ctx, "room", nights(5, 6), holdIfFree("same", 1, nights(5, 6)))
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestMemoryStore_ConcurrentHolds(t *testing.T) {
	store := setupStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	// capacity 4, ten attempts of 2 units each: exactly two fit
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rid := fmt.Sprintf("r%d", id)
			_, err := store.Hold(context.Background(), "room", nights(0, 2), holdIfFree(rid, 2, nights(0, 2)))
			if err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 2, successCount)

	committed, err := store.CommittedQuantity(context.Background(), "room", nights(0, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, committed)
}

func TestMemoryStore_ReleaseHold_Idempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.Hold(ctx, "room", nights(0, 2), holdIfFree("r1", 4, nights(0, 2)))
	require.NoError(t, err)

	released, err := store.ReleaseHold(ctx, "r1", start)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = store.ReleaseHold(ctx, "r1", start.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, released)

	released, err = store.ReleaseHold(ctx, "never-held", start)
	require.NoError(t, err)
	assert.False(t, released)

	committed, _ := store.CommittedQuantity(ctx, "room", nights(0, 2))
	assert.Equal(t, 0, committed)
}

func TestMemoryStore_UpdateReservation_VersionConflict(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	res, err := store.Hold(ctx, "room", nights(0, 2), holdIfFree("r1", 1, nights(0, 2)))
	require.NoError(t, err)

	res.Status = domain.StatusConfirmed
	require.NoError(t, store.UpdateReservation(ctx, Mutation{Reservation: res, ExpectedVersion: 1}))
	assert.Equal(t, 2, res.Version)

	stale := res.Clone()
	stale.Status = domain.StatusCancelled
	err = store.UpdateReservation(ctx, Mutation{Reservation: stale, ExpectedVersion: 1})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	got, err := store.GetReservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
}

func TestMemoryStore_UpdateReservation_KeepsReleasedHold(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	res, err := store.Hold(ctx, "room", nights(0, 2), holdIfFree("r1", 1, nights(0, 2)))
	require.NoError(t, err)

	_, err = store.ReleaseHold(ctx, "r1", start)
	require.NoError(t, err)

	require.NoError(t, store.UpdateReservation(ctx, Mutation{Reservation: res, ExpectedVersion: 1}))
	got, _ := store.GetReservation(ctx, "r1")
	assert.NotNil(t, got.HoldReleasedAt)
}

func TestMemoryStore_UpdateReservation_DuplicateEvent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	res, err := store.Hold(ctx, "room", nights(0, 2), holdIfFree("r1", 1, nights(0, 2)))
	require.NoError(t, err)

	require.NoError(t, store.UpdateReservation(ctx, Mutation{Reservation: res, ExpectedVersion: 1, EventKey: "pay-1"}))
	err = store.UpdateReservation(ctx, Mutation{Reservation: res, ExpectedVersion: 2, EventKey: "pay-1"})
	assert.True(t, errors.Is(err, ErrDuplicateEvent))
}

func TestMemoryStore_ListPendingBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.Hold(ctx, "room", nights(0, 1), holdIfFree("old", 1, nights(0, 1)))
	require.NoError(t, err)

	pending, err := store.ListPendingBefore(ctx, start.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	pending, err = store.ListPendingBefore(ctx, start, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStore_Outbox(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.Hold(ctx, "room", nights(0, 1), holdIfFree("a", 1, nights(0, 1)))
	require.NoError(t, err)
	_, err = store.Hold(ctx, "room", nights(0, 1), holdIfFree("b", 1, nights(0, 1)))
	require.NoError(t, err)

	events, err := store.GetUnpublishedEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, store.MarkEventPublished(ctx, events[0].ID))

	events, err = store.GetUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].AggregateID)
}
