package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/clock"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var day0 = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

func setupLedger(t *testing.T, unit *domain.BookableUnit) (*Ledger, *store.MemoryStore) {
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.SaveUnit(context.Background(), unit))
	return New(st, clock.NewManual(day0), zap.NewNop()), st
}

func creator(id string, qty int, iv interval.Interval) CreateFunc {
	return func(unit *domain.BookableUnit) (*domain.Reservation, []domain.OutboxEvent, error) {
		return &domain.Reservation{
			ID:            id,
			BookingNumber: id,
			UnitID:        unit.ID,
			Interval:      iv,
			Quantity:      qty,
			Status:        domain.StatusPending,
		}, nil, nil
	}
}

func span(from, to int) interval.Interval {
	return interval.Interval{Start: day0.AddDate(0, 0, from), End: day0.AddDate(0, 0, to)}
}

func TestLedger_AvailableQuantity(t *testing.T) {
	unit := &domain.BookableUnit{ID: "twin", Kind: domain.KindNightly, Granularity: domain.PerNight, Capacity: 5}
	l, _ := setupLedger(t, unit)
	ctx := context.Background()

	_, err := l.Reserve(ctx, unit, span(0, 3), 2, creator("a", 2, span(0, 3)))
	require.NoError(t, err)
	_, err = l.Reserve(ctx, unit, span(2, 4), 1, creator("b", 1, span(2, 4)))
	require.NoError(t, err)

	avail, err := l.AvailableQuantity(ctx, unit, span(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, avail)

	avail, err = l.AvailableQuantity(ctx, unit, span(4, 6))
	require.NoError(t, err)
	assert.Equal(t, 5, avail)
}

func TestLedger_Reserve_CapacityExceeded(t *testing.T) {
	unit := &domain.BookableUnit{ID: "suite", Kind: domain.KindNightly, Granularity: domain.PerNight, Capacity: 3}
	l, _ := setupLedger(t, unit)
	ctx := context.Background()

	_, err := l.Reserve(ctx, unit, span(0, 2), 2, creator("a", 2, span(0, 2)))
	require.NoError(t, err)

	_, err = l.Reserve(ctx, unit, span(1, 2), 2, creator("b", 2, span(1, 2)))
	var ce *domain.CapacityExceededError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Remaining)
	assert.Equal(t, 2, ce.Requested)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestLedger_Reserve_CreateFailureLeavesNoHold(t *testing.T) {
	unit := &domain.BookableUnit{ID: "suite", Kind: domain.KindNightly, Granularity: domain.PerNight, Capacity: 1}
	l, _ := setupLedger(t, unit)
	ctx := context.Background()
	boom := errors.New("pricing exploded")

	_, err := l.Reserve(ctx, unit, span(0, 1), 1, func(*domain.BookableUnit) (*domain.Reservation, []domain.OutboxEvent, error) {
		return nil, nil, boom
	})
	require.ErrorIs(t, err, boom)

	avail, err := l.AvailableQuantity(ctx, unit, span(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, avail)
}

func TestLedger_Reserve_SingleSlotSameDay(t *testing.T) {
	unit := &domain.BookableUnit{ID: "dj", Kind: domain.KindSingleSlot, Granularity: domain.PerEvent, Capacity: 1}
	l, _ := setupLedger(t, unit)
	ctx := context.Background()
	wedding := interval.Interval{Start: day0.AddDate(0, 0, 10), End: day0.AddDate(0, 0, 10)}

	res, err := l.Reserve(ctx, unit, wedding, 1, creator("first", 1, wedding))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, res.Occupied.End.Sub(res.Occupied.Start))

	_, err = l.Reserve(ctx, unit, wedding, 1, creator("second", 1, wedding))
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestLedger_Release_Idempotent(t *testing.T) {
	unit := &domain.BookableUnit{ID: "suite", Kind: domain.KindNightly, Granularity: domain.PerNight, Capacity: 1}
	l, _ := setupLedger(t, unit)
	ctx := context.Background()

	res, err := l.Reserve(ctx, unit, span(0, 1), 1, creator("a", 1, span(0, 1)))
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, res))
	assert.NotNil(t, res.HoldReleasedAt)
	require.NoError(t, l.Release(ctx, res))
	require.NoError(t, l.Release(ctx, &domain.Reservation{ID: "never-held"}))

	avail, err := l.AvailableQuantity(ctx, unit, span(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, avail)
}

func TestLedger_CapacityShrunkBelowCommitted(t *testing.T) {
	unit := &domain.BookableUnit{ID: "suite", Kind: domain.KindNightly, Granularity: domain.PerNight, Capacity: 3}
	l, st := setupLedger(t, unit)
	ctx := context.Background()

	_, err := l.Reserve(ctx, unit, span(0, 1), 3, creator("a", 3, span(0, 1)))
	require.NoError(t, err)

	unit.Capacity = 1
	require.NoError(t, st.SaveUnit(ctx, unit))

	avail, err := l.AvailableQuantity(ctx, unit, span(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, avail)
}
