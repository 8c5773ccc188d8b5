package service

import (
	"context"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/cache"
	"github.com/rnqayush/starter-sub001/booking-service/internal/clock"
	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/ledger"
	"github.com/rnqayush/starter-sub001/booking-service/internal/lifecycle"
	"github.com/rnqayush/starter-sub001/booking-service/internal/pricing"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	serviceName        = "booking-service"
	defaultMaxAttempts = 3
)

// Authorizer answers whether actor may perform action on a unit or one of its reservations.
type Authorizer interface {
	Authorize(actor domain.Actor, action domain.Action, unit *domain.BookableUnit, res *domain.Reservation) error
}

// Notifier is told about bookings and status changes. Delivery never blocks the caller.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type BookingService struct {
	store    store.Store
	ledger   *ledger.Ledger
	machine  *lifecycle.Machine
	pricing  *pricing.Calculator
	authz    Authorizer
	cache    cache.AvailabilityCache
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
	tracer   trace.Tracer
	sfg      singleflight.Group // collapses concurrent availability misses

	maxAttempts int
	backoff     time.Duration
}

type Option func(*BookingService)

func WithCache(c cache.AvailabilityCache) Option {
	return func(s *BookingService) { s.cache = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *BookingService) { s.notifier = n }
}

func WithClock(c clock.Clock) Option {
	return func(s *BookingService) { s.clock = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *BookingService) { s.tracer = t }
}

// WithMaxAttempts bounds how often a hold or update that lost a race is retried.
func WithMaxAttempts(n int, backoff time.Duration) Option {
	return func(s *BookingService) {
		if n > 0 {
			s.maxAttempts = n
		}
		s.backoff = backoff
	}
}

func NewBookingService(st store.Store, authz Authorizer, logger *zap.Logger, opts ...Option) *BookingService {
	s := &BookingService{
		store:       st,
		pricing:     pricing.NewCalculator(),
		authz:       authz,
		clock:       clock.Real(),
		logger:      logger,
		tracer:      otel.Tracer(serviceName),
		maxAttempts: defaultMaxAttempts,
		backoff:     10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(st, s.clock, logger)
	s.machine = lifecycle.NewMachine(st, s.ledger, s.clock, logger)
	return s
}

// Ledger exposes the inventory ledger for read-only callers such as probes.
func (s *BookingService) Ledger() *ledger.Ledger {
	return s.ledger
}
