// Package ledger owns the committed quantity of every bookable unit. Holds are
// only ever taken through Reserve and only ever dropped through Release.
package ledger

import (
	"context"
	"fmt"

	"github.com/rnqayush/starter-sub001/booking-service/internal/clock"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"go.uber.org/zap"
)

// CreateFunc builds the reservation and its outbox events once capacity is secured.
// It runs inside the hold, so returning an error leaves nothing behind.
type CreateFunc func(unit *domain.BookableUnit) (*domain.Reservation, []domain.OutboxEvent, error)

type Ledger struct {
	store  store.Store
	clock  clock.Clock
	logger *zap.Logger
}

func New(st store.Store, clk clock.Clock, logger *zap.Logger) *Ledger {
	return &Ledger{store: st, clock: clk, logger: logger}
}

// AvailableQuantity is capacity minus the quantity of every capacity-holding
// reservation overlapping iv. It never goes below zero.
func (l *Ledger) AvailableQuantity(ctx context.Context, unit *domain.BookableUnit, iv interval.Interval) (int, error) {
	committed, err := l.store.CommittedQuantity(ctx, unit.ID, iv.Normalize(unit.BillingUnit()))
	if err != nil {
		return 0, fmt.Errorf("failed to read committed quantity: %w", err)
	}
	return remaining(unit.Capacity, committed), nil
}

// Reserve re-validates availability and inserts the reservation built by create in
// one atomic store call. On refusal it returns *domain.CapacityExceededError carrying
// the quantity that was actually free.
func (l *Ledger) Reserve(ctx context.Context, unit *domain.BookableUnit, iv interval.Interval, quantity int, create CreateFunc) (*domain.Reservation, error) {
	occupied := iv.Normalize(unit.BillingUnit())

	return l.store.Hold(ctx, unit.ID, occupied, func(locked *domain.BookableUnit, committed int) (*domain.Reservation, []domain.OutboxEvent, error) {
		free := remaining(locked.Capacity, committed)
		if quantity > free {
			return nil, nil, &domain.CapacityExceededError{UnitID: locked.ID, Requested: quantity, Remaining: free}
		}

		res, events, err := create(locked)
		if err != nil {
			return nil, nil, err
		}
		res.Occupied = occupied
		return res, events, nil
	})
}

// Release drops the hold of a reservation. Releasing twice, or releasing a
// reservation that never held anything, is a no-op.
func (l *Ledger) Release(ctx context.Context, res *domain.Reservation) error {
	now := l.clock.Now()
	released, err := l.store.ReleaseHold(ctx, res.ID, now)
	if err != nil {
		return fmt.Errorf("failed to release hold for reservation %s: %w", res.ID, err)
	}
	if released {
		res.HoldReleasedAt = &now
		l.logger.Debug("hold released",
			zap.String("reservation_id", res.ID),
			zap.String("unit_id", res.UnitID),
			zap.Int("quantity", res.Quantity))
	}
	return nil
}

func remaining(capacity, committed int) int {
	if committed >= capacity {
		return 0
	}
	return capacity - committed
}
