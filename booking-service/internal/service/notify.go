package service

import (
	"context"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"go.uber.org/zap"
)

// notify hands n to the notifier on its own goroutine. The request context may
// be cancelled as soon as the caller returns, so only its values are kept.
func (s *BookingService) notify(ctx context.Context, kind domain.NotificationKind, res *domain.Reservation) {
	if s.notifier == nil {
		return
	}
	n := domain.Notification{
		Kind:          kind,
		ReservationID: res.ID,
		BookingNumber: res.BookingNumber,
		RequesterID:   res.RequesterID,
		OwnerID:       res.OwnerID,
		Status:        res.Status,
	}
	if res.Cancellation != nil {
		amount := res.Cancellation.RefundAmount
		n.RefundAmount = &amount
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, 5*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("notification failed",
				zap.String("kind", string(kind)),
				zap.String("reservation_id", n.ReservationID),
				zap.Error(err))
		}
	}()
}

func notificationFor(status domain.Status) domain.NotificationKind {
	switch status {
	case domain.StatusConfirmed:
		return domain.NotifyConfirmed
	case domain.StatusCancelled:
		return domain.NotifyCancelled
	default:
		return domain.NotifyStatus
	}
}

func (s *BookingService) invalidateCache(ctx context.Context, unitID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, unitID); err != nil {
		s.logger.Warn("cache invalidate error", zap.String("unit_id", unitID), zap.Error(err))
	}
}
