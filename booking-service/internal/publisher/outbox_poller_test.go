package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// MockProducer records written messages and fails from failAt onwards.
type MockProducer struct {
	Messages []kafkaGo.Message
	failAt   int
	closed   bool
}

func (m *MockProducer) WriteMessage(_ context.Context, msg kafkaGo.Message) error {
	if m.failAt > 0 && len(m.Messages)+1 >= m.failAt {
		return errors.New("broker unavailable")
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *MockProducer) Close() error {
	m.closed = true
	return nil
}

func seedStore(t *testing.T, n int) *store.MemoryStore {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.SaveUnit(ctx, &domain.BookableUnit{ID: "room", Kind: domain.KindNightly, Granularity: domain.PerNight, Capacity: n}))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	iv := interval.Interval{Start: start, End: start.AddDate(0, 0, 1)}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("res-%d", i)
		_, err := st.Hold(ctx, "room", iv, func(unit *domain.BookableUnit, _ int) (*domain.Reservation, []domain.OutboxEvent, error) {
			res := &domain.Reservation{ID: id, BookingNumber: id, UnitID: unit.ID, Interval: iv, Quantity: 1, Status: domain.StatusPending}
			ev, err := domain.NewReservationEvent(domain.EventReservationCreated, res, "", start)
			return res, []domain.OutboxEvent{ev}, err
		})
		require.NoError(t, err)
	}
	return st
}

func TestOutboxPoller_PublishesAndMarks(t *testing.T) {
	st := seedStore(t, 3)
	producer := &MockProducer{}
	poller := NewOutboxPoller(st, producer, time.Second, zap.NewNop())

	published := poller.processUnpublishedEvents(context.Background())
	assert.Equal(t, 3, published)
	require.Len(t, producer.Messages, 3)

	msg := producer.Messages[0]
	assert.Equal(t, "res-0", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, domain.EventReservationCreated, string(msg.Headers[0].Value))

	var payload domain.ReservationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "res-0", payload.ReservationID)

	remaining, err := st.GetUnpublishedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestOutboxPoller_StopsAtFirstFailure(t *testing.T) {
	st := seedStore(t, 3)
	producer := &MockProducer{failAt: 2}
	poller := NewOutboxPoller(st, producer, time.Second, zap.NewNop())

	published := poller.processUnpublishedEvents(context.Background())
	assert.Equal(t, 1, published)

	remaining, err := st.GetUnpublishedEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "res-1", remaining[0].AggregateID, "failed event is retried first")
}

func TestOutboxPoller_RunStopsWithContext(t *testing.T) {
	st := seedStore(t, 1)
	producer := &MockProducer{}
	poller := NewOutboxPoller(st, producer, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		events, _ := st.GetUnpublishedEvents(context.Background(), 10)
		return len(events) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	require.NoError(t, poller.Close())
	assert.True(t, producer.closed)
}

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	brokerAddr := setupKafka(t)

	producer, err := NewKafkaProducer([]string{brokerAddr}, "reservation-events", noop.NewTracerProvider())
	require.NoError(t, err)

	st := seedStore(t, 1)
	poller := NewOutboxPoller(st, producer, 500*time.Millisecond, zap.NewNop())
	defer poller.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    "reservation-events",
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "res-0", string(msg.Key))

	var payload domain.ReservationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, domain.StatusPending, payload.Status)
}
