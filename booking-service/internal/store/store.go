package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
)

// Common errors returned by stores
var (
	ErrUnitNotFound        = fmt.Errorf("bookable unit %w", domain.ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", domain.ErrNotFound)
	ErrVersionConflict     = fmt.Errorf("reservation was modified concurrently: %w", domain.ErrConcurrencyConflict)
	ErrDuplicateEvent      = errors.New("payment event already applied")
)

// ErrDuplicateBookingNumber is retried by the caller with a fresh number.
var ErrDuplicateBookingNumber = fmt.Errorf("booking number already taken: %w", domain.ErrConcurrencyConflict)

// HoldFunc decides, under the unit's capacity lock, whether to insert a reservation.
// committed is the quantity already held by reservations overlapping the requested interval.
// Returning an error aborts the hold and nothing is written.
type HoldFunc func(unit *domain.BookableUnit, committed int) (*domain.Reservation, []domain.OutboxEvent, error)

// Mutation is a reservation update written atomically with its outbox events.
type Mutation struct {
	Reservation *domain.Reservation
	// ExpectedVersion must match the stored version or ErrVersionConflict is returned.
	ExpectedVersion int
	Events          []domain.OutboxEvent
	// EventKey marks an inbound payment event as applied; ErrDuplicateEvent if already seen.
	EventKey string
}

// Store defines the persistence operations the booking engine relies on.
type Store interface {
	GetUnit(ctx context.Context, unitID string) (*domain.BookableUnit, error)
	SaveUnit(ctx context.Context, unit *domain.BookableUnit) error

	// CommittedQuantity sums quantities of capacity-holding reservations on the unit
	// whose occupied interval overlaps occupied.
	CommittedQuantity(ctx context.Context, unitID string, occupied interval.Interval) (int, error)

	// Hold serializes capacity decisions per unit: the committed quantity is read,
	// fn is called and the reservation it returns is inserted as one atomic step.
	Hold(ctx context.Context, unitID string, occupied interval.Interval, fn HoldFunc) (*domain.Reservation, error)

	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, m Mutation) error

	// ReleaseHold stamps the hold as released. It reports false when there was
	// nothing to release.
	ReleaseHold(ctx context.Context, reservationID string, at time.Time) (bool, error)

	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error)

	GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error

	Close() error
}
