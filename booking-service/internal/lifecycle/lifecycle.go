// Package lifecycle moves a single reservation through its status table and
// applies the side effects of each move: timestamps, refunds and hold release.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/clock"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/ledger"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Change is one requested move of a reservation.
type Change struct {
	Target domain.Status
	Actor  domain.Actor
	Reason string
	// Policy is only evaluated when Target is cancelled.
	Policy domain.CancellationPolicy
	// EventKey identifies the inbound event that caused the change, if any.
	// The store refuses the same key twice.
	EventKey string
	// Events are written alongside the status event in the same store call.
	Events []domain.OutboxEvent
}

type Machine struct {
	store  store.Store
	ledger *ledger.Ledger
	clock  clock.Clock
	logger *zap.Logger
}

func NewMachine(st store.Store, l *ledger.Ledger, clk clock.Clock, logger *zap.Logger) *Machine {
	return &Machine{store: st, ledger: l, clock: clk, logger: logger}
}

// Apply validates ch against the transition table, persists the result with an
// optimistic version check and releases the hold when the new status no longer
// holds capacity. res is left untouched; the persisted copy is returned.
func (m *Machine) Apply(ctx context.Context, res *domain.Reservation, ch Change) (*domain.Reservation, error) {
	now := m.clock.Now()
	previous := res.Status

	updated := res.Clone()
	if err := updated.MoveTo(ch.Target, now); err != nil {
		return nil, err
	}

	eventType := domain.EventReservationStatusChanged
	if ch.Target == domain.StatusCancelled {
		eventType = domain.EventReservationCancelled
		pct, amount := CalculateRefund(res, ch.Policy, now)
		status := domain.RefundNone
		if amount.IsPositive() {
			status = domain.RefundPending
		}
		updated.Cancellation = &domain.Cancellation{
			Reason:        ch.Reason,
			CancelledBy:   ch.Actor.ID,
			RefundPercent: pct,
			RefundAmount:  amount,
			RefundStatus:  status,
		}
	}

	event, err := domain.NewReservationEvent(eventType, updated, previous, now)
	if err != nil {
		return nil, err
	}

	err = m.store.UpdateReservation(ctx, store.Mutation{
		Reservation:     updated,
		ExpectedVersion: res.Version,
		Events:          append([]domain.OutboxEvent{event}, ch.Events...),
		EventKey:        ch.EventKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist transition %s -> %s: %w", previous, ch.Target, err)
	}

	m.logger.Info("reservation transitioned",
		zap.String("reservation_id", updated.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(ch.Target)),
		zap.String("actor", ch.Actor.ID))

	if !ch.Target.HoldsCapacity() {
		// The status change already stopped the reservation counting against the
		// unit; a failed release only leaves the release timestamp unset.
		if err := m.ledger.Release(ctx, updated); err != nil {
			m.logger.Warn("failed to record hold release",
				zap.String("reservation_id", updated.ID),
				zap.Error(err))
		}
	}

	return updated, nil
}

// CalculateRefund evaluates policy against the time left before the
// reservation starts. The amount is paid × percent, rounded to cents and never
// more than what was paid.
func CalculateRefund(res *domain.Reservation, policy domain.CancellationPolicy, now time.Time) (decimal.Decimal, decimal.Decimal) {
	pct := policy.Percentage(res.Interval.Start.Sub(now))
	return pct, RefundFor(res.PaidAmount, pct)
}

// RefundFor is paid × pct / 100 rounded half away from zero to cents, capped at paid.
func RefundFor(paid, pct decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() || !paid.IsPositive() {
		return decimal.Zero
	}
	amount := paid.Mul(pct).Div(hundred).Round(2)
	if amount.GreaterThan(paid) {
		amount = paid
	}
	return amount
}
