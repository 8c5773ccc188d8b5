package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type Reader interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}

// PaymentHandler applies one payment report. It must be idempotent per event id.
type PaymentHandler interface {
	ApplyPaymentEvent(ctx context.Context, ev domain.PaymentEvent) error
}

// NewKafkaReader returns a traced reader of the payment topic.
func NewKafkaReader(brokers []string, topic, groupID string) (Reader, error) {
	baseReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	reader, err := otelkafka.NewReader(baseReader)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

const (
	defaultRetryDelay    = 200 * time.Millisecond
	defaultMaxRetryDelay = 10 * time.Second
)

type Consumer struct {
	reader        Reader
	handler       PaymentHandler
	logger        *zap.Logger
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

func NewConsumer(reader Reader, handler PaymentHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:        reader,
		handler:       handler,
		logger:        logger,
		retryDelay:    defaultRetryDelay,
		maxRetryDelay: defaultMaxRetryDelay,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.Error("error reading message", zap.Error(err))
		return
	}
	c.handleMessage(ctx, m)
}

// handleMessage skips messages that can never be applied (bad JSON, invalid or
// unknown reservations) so one poison message does not stall the partition.
// Transient failures are retried with capped backoff until ctx is done, since
// the offset is already committed once the message was read.
func (c *Consumer) handleMessage(ctx context.Context, m *kafka.Message) {
	msgCtx := extractTraceContext(ctx, m.Headers)

	var event domain.PaymentEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.Error("error parsing payment event",
			zap.Error(err),
			zap.ByteString("raw_value", m.Value))
		return
	}

	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := c.handler.ApplyPaymentEvent(msgCtx, event)
		if err == nil {
			break
		}
		fields := []zap.Field{
			zap.String("event_id", event.EventID),
			zap.String("type", string(event.Type)),
			zap.String("reservation_id", event.ReservationID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if ctx.Err() != nil {
			c.logger.Error("payment event dropped at shutdown", fields...)
			return
		}
		if !isTransient(err) {
			c.logger.Error("skipping payment event that cannot be applied", fields...)
			return
		}

		c.logger.Warn("payment event not applied, retrying", append(fields, zap.Duration("delay", delay))...)
		select {
		case <-ctx.Done():
			c.logger.Error("payment event dropped at shutdown", fields...)
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxRetryDelay)
	}

	c.logger.Info("payment event applied",
		zap.String("event_id", event.EventID),
		zap.String("type", string(event.Type)),
		zap.String("reservation_id", event.ReservationID))
}

func extractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[header.Key] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrPersistence) ||
		errors.Is(err, domain.ErrConcurrencyConflict) ||
		errors.Is(err, context.DeadlineExceeded)
}
