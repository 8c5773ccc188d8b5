package service

import (
	"context"
	"errors"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/lifecycle"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ApplyPaymentEvent folds an asynchronous payment report into the reservation.
// Each event id is applied at most once; a redelivered event is acknowledged
// without effect.
func (s *BookingService) ApplyPaymentEvent(ctx context.Context, ev domain.PaymentEvent) error {
	ctx, span := s.tracer.Start(ctx, "apply_payment_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.event_id", ev.EventID),
		attribute.String("payment.type", string(ev.Type)),
		attribute.String("reservation.id", ev.ReservationID),
	)

	err := s.applyPaymentWithRetry(ctx, ev)
	if errors.Is(err, store.ErrDuplicateEvent) {
		s.logger.Debug("payment event already applied", zap.String("event_id", ev.EventID))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "payment event applied")
	return nil
}

func (s *BookingService) applyPaymentWithRetry(ctx context.Context, ev domain.PaymentEvent) error {
	if ev.EventID == "" || ev.ReservationID == "" {
		return domain.InvalidRequestf("payment event needs an event id and a reservation id")
	}

	for attempt := 1; ; attempt++ {
		res, err := s.store.GetReservation(ctx, ev.ReservationID)
		if err != nil {
			return err
		}

		err = s.applyPayment(ctx, res, ev)
		if err == nil || !errors.Is(err, store.ErrVersionConflict) || attempt >= s.maxAttempts {
			return err
		}
		if err := s.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

func (s *BookingService) applyPayment(ctx context.Context, res *domain.Reservation, ev domain.PaymentEvent) error {
	now := s.clock.Now()
	updated := res.Clone()
	updated.UpdatedAt = now

	switch ev.Type {
	case domain.PaymentSucceeded:
		if !ev.Amount.IsPositive() {
			return domain.InvalidRequestf("payment amount must be positive")
		}
		paid := res.PaidAmount.Add(ev.Amount)
		if paid.GreaterThan(res.Pricing.Total) {
			s.logger.Warn("payment exceeds reservation total, capping",
				zap.String("reservation_id", res.ID),
				zap.String("paid", paid.String()),
				zap.String("total", res.Pricing.Total.String()))
			paid = res.Pricing.Total
		}
		updated.PaidAmount = paid
		if res.Status == domain.StatusCancelled && res.Cancellation != nil {
			s.settleLateRefund(updated)
		}

		paidEvent, err := domain.NewReservationEvent(domain.EventReservationPaid, updated, res.Status, now)
		if err != nil {
			return err
		}

		if res.Status == domain.StatusPending && updated.Outstanding().IsZero() {
			confirmed, err := s.machine.Apply(ctx, updated, lifecycle.Change{
				Target:   domain.StatusConfirmed,
				Actor:    domain.SystemActor,
				EventKey: ev.EventID,
				Events:   []domain.OutboxEvent{paidEvent},
			})
			if err != nil {
				return err
			}
			s.notify(ctx, domain.NotifyConfirmed, confirmed)
			return nil
		}

		return s.store.UpdateReservation(ctx, store.Mutation{
			Reservation:     updated,
			ExpectedVersion: res.Version,
			Events:          []domain.OutboxEvent{paidEvent},
			EventKey:        ev.EventID,
		})

	case domain.PaymentFailed:
		s.logger.Warn("payment failed",
			zap.String("reservation_id", res.ID),
			zap.String("event_id", ev.EventID),
			zap.String("reason", ev.Reason))
		return nil

	case domain.PaymentRefundCompleted, domain.PaymentRefundFailed:
		target := domain.RefundCompleted
		if ev.Type == domain.PaymentRefundFailed {
			target = domain.RefundFailed
		}
		if res.Cancellation == nil || res.Cancellation.RefundStatus == domain.RefundNone {
			return domain.InvalidRequestf("reservation %s has no refund due", res.ID)
		}
		if res.Cancellation.RefundStatus == target {
			return store.ErrDuplicateEvent
		}
		updated.Cancellation.RefundStatus = target

		refundEvent, err := domain.NewReservationEvent(domain.EventReservationRefundUpdated, updated, res.Status, now)
		if err != nil {
			return err
		}
		return s.store.UpdateReservation(ctx, store.Mutation{
			Reservation:     updated,
			ExpectedVersion: res.Version,
			Events:          []domain.OutboxEvent{refundEvent},
			EventKey:        ev.EventID,
		})

	default:
		return domain.InvalidRequestf("unknown payment event type %q", ev.Type)
	}
}

// settleLateRefund recomputes the refund of a cancelled reservation after money
// arrived for it. The percentage fixed at cancellation applies to everything
// paid, and any increase is due again.
func (s *BookingService) settleLateRefund(res *domain.Reservation) {
	c := res.Cancellation
	amount := lifecycle.RefundFor(res.PaidAmount, c.RefundPercent)
	if !amount.GreaterThan(c.RefundAmount) {
		return
	}
	s.logger.Warn("payment received after cancellation, refund due",
		zap.String("reservation_id", res.ID),
		zap.String("paid", res.PaidAmount.String()),
		zap.String("refund", amount.String()))
	c.RefundAmount = amount
	c.RefundStatus = domain.RefundPending
}
