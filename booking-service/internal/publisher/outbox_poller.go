package publisher

import (
	"context"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// NewKafkaProducer returns a traced writer for topic. Trace context travels in
// the message headers.
func NewKafkaProducer(brokers []string, topic string, tp trace.TracerProvider) (Producer, error) {
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", "booking-service"),
			},
		),
	)
	if err != nil {
		return nil, err
	}
	return writer, nil
}

// OutboxPoller drains the store's outbox into Kafka. Events are marked as
// published only after the write succeeded, so delivery is at least once.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	store     store.Store
	producer  Producer
	logger    *zap.Logger
}

func NewOutboxPoller(st store.Store, producer Producer, eventTick time.Duration, logger *zap.Logger) *OutboxPoller {
	if eventTick <= 0 {
		eventTick = time.Second
	}
	return &OutboxPoller{
		eventTick: eventTick,
		batchSize: defaultBatchSize,
		store:     st,
		producer:  producer,
		logger:    logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.producer.Close()
}

// processUnpublishedEvents publishes one batch and returns how many events made it.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.store.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			// stop here so events of one reservation are not published out of order
			p.logger.Warn("failed to publish outbox event",
				zap.Int64("outbox_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			return published
		}

		if err := p.store.MarkEventPublished(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark outbox event as published",
				zap.Int64("outbox_id", event.ID),
				zap.Error(err))
			return published
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // reservation id keeps one reservation on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	return p.producer.WriteMessage(ctx, msg)
}
