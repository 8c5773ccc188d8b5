package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/ledger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// BookUnit validates req, holds capacity, prices the stay and persists a
// pending reservation, all or nothing. A hold that keeps losing races is
// retried a bounded number of times before surfacing CapacityExceeded.
func (s *BookingService) BookUnit(ctx context.Context, actor domain.Actor, req domain.ReservationRequest) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "book_unit")
	defer span.End()
	span.SetAttributes(
		attribute.String("unit.id", req.UnitID),
		attribute.Int("reservation.quantity", req.Quantity),
	)

	res, err := s.bookUnit(ctx, actor, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("reservation.id", res.ID),
		attribute.String("reservation.booking_number", res.BookingNumber),
	)
	span.SetStatus(codes.Ok, "capacity held")
	return res, nil
}

func (s *BookingService) bookUnit(ctx context.Context, actor domain.Actor, req domain.ReservationRequest) (*domain.Reservation, error) {
	if req.RequesterID == "" {
		req.RequesterID = actor.ID
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.RequesterID != actor.ID && actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSystem {
		return nil, fmt.Errorf("%w: cannot book on behalf of %s", domain.ErrForbidden, req.RequesterID)
	}

	unit, err := s.store.GetUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, domain.ActionBook, unit, nil); err != nil {
		return nil, err
	}
	if err := req.ValidateFor(unit); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res, err := s.ledger.Reserve(ctx, unit, req.Interval, req.Quantity, s.newReservation(req))
		if err == nil {
			s.logger.Info("reservation held",
				zap.String("reservation_id", res.ID),
				zap.String("booking_number", res.BookingNumber),
				zap.String("unit_id", res.UnitID),
				zap.Int("quantity", res.Quantity),
				zap.Int("attempt", attempt))
			s.invalidateCache(ctx, unit.ID)
			s.notify(ctx, domain.NotifyBooked, res)
			return res, nil
		}

		var ce *domain.CapacityExceededError
		if errors.As(err, &ce) || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("hold lost a race, retrying",
			zap.String("unit_id", unit.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if err := s.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}

	remaining, err := s.ledger.AvailableQuantity(ctx, unit, req.Interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lastErr, err)
	}
	return nil, &domain.CapacityExceededError{
		UnitID:    unit.ID,
		Requested: req.Quantity,
		Remaining: remaining,
		Cause:     lastErr,
	}
}

// newReservation runs inside the hold with the locked unit, so the price is
// computed from the exact unit state the capacity decision was made on.
func (s *BookingService) newReservation(req domain.ReservationRequest) ledger.CreateFunc {
	return func(unit *domain.BookableUnit) (*domain.Reservation, []domain.OutboxEvent, error) {
		breakdown, err := s.pricing.Price(unit, req.Interval, req.Quantity, req.AddOns, req.PromoCode)
		if err != nil {
			return nil, nil, err
		}

		now := s.clock.Now()
		res := &domain.Reservation{
			ID:            uuid.NewString(),
			BookingNumber: bookingNumber(unit.Kind, req.Interval.Start),
			UnitID:        unit.ID,
			OwnerID:       unit.OwnerID,
			RequesterID:   req.RequesterID,
			Interval:      req.Interval,
			Quantity:      req.Quantity,
			Guests:        req.Guests,
			Pricing:       breakdown,
			PaidAmount:    decimal.Zero,
			Status:        domain.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		event, err := domain.NewReservationEvent(domain.EventReservationCreated, res, "", now)
		if err != nil {
			return nil, nil, err
		}
		return res, []domain.OutboxEvent{event}, nil
	}
}

// bookingNumber encodes the unit kind and the start date, e.g. NGT-251220-9F1C04A7B2D3.
func bookingNumber(kind domain.UnitKind, start time.Time) string {
	prefix := "NGT"
	if kind == domain.KindSingleSlot {
		prefix = "SLT"
	}
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("%s-%s-%s", prefix, start.Format("060102"), entropy)
}

func (s *BookingService) wait(ctx context.Context, attempt int) error {
	if s.backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * s.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
