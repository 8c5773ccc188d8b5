package service

import (
	"context"
	"errors"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/lifecycle"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const expiredReason = "pending reservation expired"

type CancelResult struct {
	Reservation  *domain.Reservation `json:"reservation"`
	RefundAmount decimal.Decimal     `json:"refund_amount"`
	RefundStatus domain.RefundStatus `json:"refund_status"`
}

func (s *BookingService) GetReservation(ctx context.Context, actor domain.Actor, reservationID string) (*domain.Reservation, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	unit, err := s.store.GetUnit(ctx, res.UnitID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, domain.ActionView, unit, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Transition moves a reservation to target on behalf of actor.
func (s *BookingService) Transition(ctx context.Context, actor domain.Actor, reservationID string, target domain.Status) (*domain.Reservation, error) {
	return s.transition(ctx, "transition", reservationID, lifecycle.Change{Target: target, Actor: actor})
}

// Cancel cancels a reservation and reports the refund it is owed under the
// unit's cancellation policy. Paying it out is left to the payment collaborator.
func (s *BookingService) Cancel(ctx context.Context, actor domain.Actor, reservationID, reason string) (*CancelResult, error) {
	res, err := s.transition(ctx, "cancel", reservationID, lifecycle.Change{
		Target: domain.StatusCancelled,
		Actor:  actor,
		Reason: reason,
	})
	if err != nil {
		return nil, err
	}
	return &CancelResult{
		Reservation:  res,
		RefundAmount: res.Cancellation.RefundAmount,
		RefundStatus: res.Cancellation.RefundStatus,
	}, nil
}

func (s *BookingService) transition(ctx context.Context, op, reservationID string, ch lifecycle.Change) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("reservation.id", reservationID),
		attribute.String("reservation.target_status", string(ch.Target)),
		attribute.String("actor.role", string(ch.Actor.Role)),
	)

	updated, err := s.applyWithRetry(ctx, reservationID, ch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !ch.Target.HoldsCapacity() {
		s.invalidateCache(ctx, updated.UnitID)
	}
	s.notify(ctx, notificationFor(updated.Status), updated)
	span.SetStatus(codes.Ok, "transition applied")
	return updated, nil
}

// applyWithRetry reloads and reapplies ch when the reservation changed between
// load and write. The reload re-runs authorization and the transition table
// against the fresh state.
func (s *BookingService) applyWithRetry(ctx context.Context, reservationID string, ch lifecycle.Change) (*domain.Reservation, error) {
	if !ch.Target.Valid() {
		return nil, domain.InvalidRequestf("unknown status %q", ch.Target)
	}

	for attempt := 1; ; attempt++ {
		res, err := s.store.GetReservation(ctx, reservationID)
		if err != nil {
			return nil, err
		}
		unit, err := s.store.GetUnit(ctx, res.UnitID)
		if err != nil {
			return nil, err
		}
		if err := s.authz.Authorize(ch.Actor, domain.ActionFor(ch.Target), unit, res); err != nil {
			return nil, err
		}

		ch.Policy = unit.Policy
		updated, err := s.machine.Apply(ctx, res, ch)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= s.maxAttempts {
			return nil, err
		}

		s.logger.Warn("reservation changed underneath transition, retrying",
			zap.String("reservation_id", reservationID),
			zap.Int("attempt", attempt))
		if err := s.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// ExpirePending cancels pending reservations created before cutoff as the
// system actor. Reservations that moved on in the meantime are skipped.
func (s *BookingService) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.store.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range stale {
		_, err := s.transition(ctx, "expire_pending", res.ID, lifecycle.Change{
			Target: domain.StatusCancelled,
			Actor:  domain.SystemActor,
			Reason: expiredReason,
		})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrInvalidStateTransition):
			s.logger.Debug("pending reservation moved on before expiry", zap.String("reservation_id", res.ID))
		default:
			return expired, err
		}
	}
	return expired, nil
}
