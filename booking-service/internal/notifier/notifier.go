package notifier

import (
	"context"
	"fmt"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/pkg/circuitbreaker"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// RabbitNotifier publishes notifications with the notification kind as routing
// key. A broker that keeps failing trips the breaker and later notifications
// fail fast instead of piling up goroutines.
type RabbitNotifier struct {
	publisher Publisher
	breaker   *circuitbreaker.Breaker[struct{}]
	logger    *zap.Logger
}

func NewRabbitNotifier(p Publisher, cfg circuitbreaker.Config, logger *zap.Logger) *RabbitNotifier {
	return &RabbitNotifier{
		publisher: p,
		breaker:   circuitbreaker.New[struct{}](cfg, logger),
		logger:    logger,
	}
}

func (n *RabbitNotifier) Notify(ctx context.Context, note domain.Notification) error {
	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.publisher.PublishJSON(ctx, string(note.Kind), note)
	})
	if err != nil {
		return fmt.Errorf("publish %s for reservation %s: %w", note.Kind, note.ReservationID, err)
	}
	return nil
}

func (n *RabbitNotifier) Close() error {
	return n.publisher.Close()
}

// LogNotifier only logs. It stands in when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note domain.Notification) error {
	fields := []zap.Field{
		zap.String("kind", string(note.Kind)),
		zap.String("reservation_id", note.ReservationID),
		zap.String("booking_number", note.BookingNumber),
		zap.String("requester_id", note.RequesterID),
		zap.String("status", string(note.Status)),
	}
	if note.RefundAmount != nil {
		fields = append(fields, zap.String("refund_amount", note.RefundAmount.String()))
	}
	n.logger.Info("notification", fields...)
	return nil
}
