package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
)

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu           sync.RWMutex
	units        map[string]*domain.BookableUnit // unitID -> unit
	reservations map[string]*domain.Reservation  // reservationID -> reservation
	numbers      map[string]string               // bookingNumber -> reservationID
	appliedKeys  map[string]struct{}             // inbound payment event ids
	outbox       []*domain.OutboxEvent
	published    map[int64]struct{}
	nextEventID  int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units:        make(map[string]*domain.BookableUnit),
		reservations: make(map[string]*domain.Reservation),
		numbers:      make(map[string]string),
		appliedKeys:  make(map[string]struct{}),
		published:    make(map[int64]struct{}),
	}
}

func (s *MemoryStore) GetUnit(_ context.Context, unitID string) (*domain.BookableUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, exists := s.units[unitID]
	if !exists {
		return nil, ErrUnitNotFound
	}
	c := *unit
	return &c, nil
}

func (s *MemoryStore) SaveUnit(_ context.Context, unit *domain.BookableUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *unit
	s.units[unit.ID] = &c
	return nil
}

func (s *MemoryStore) CommittedQuantity(_ context.Context, unitID string, occupied interval.Interval) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.units[unitID]; !exists {
		return 0, ErrUnitNotFound
	}
	return s.committedLocked(unitID, occupied), nil
}

func (s *MemoryStore) committedLocked(unitID string, occupied interval.Interval) int {
	total := 0
	for _, r := range s.reservations {
		if r.UnitID != unitID || !r.HoldsCapacity() {
			continue
		}
		if r.Occupied.Start.Before(occupied.End) && occupied.Start.Before(r.Occupied.End) {
			total += r.Quantity
		}
	}
	return total
}

// Hold runs the whole check-and-insert under the write lock, so two holds can never
// observe the same committed quantity.
func (s *MemoryStore) Hold(_ context.Context, unitID string, occupied interval.Interval, fn HoldFunc) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, exists := s.units[unitID]
	if !exists {
		return nil, ErrUnitNotFound
	}
	unitCopy := *unit

	reservation, events, err := fn(&unitCopy, s.committedLocked(unitID, occupied))
	if err != nil {
		return nil, err
	}

	if _, taken := s.numbers[reservation.BookingNumber]; taken {
		return nil, ErrDuplicateBookingNumber
	}

	stored := reservation.Clone()
	stored.Version = 1
	s.reservations[stored.ID] = stored
	s.numbers[stored.BookingNumber] = stored.ID
	s.appendEventsLocked(events)

	return stored.Clone(), nil
}

func (s *MemoryStore) GetReservation(_ context.Context, reservationID string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, exists := s.reservations[reservationID]
	if !exists {
		return nil, ErrReservationNotFound
	}
	return reservation.Clone(), nil
}

func (s *MemoryStore) UpdateReservation(_ context.Context, m Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.reservations[m.Reservation.ID]
	if !exists {
		return ErrReservationNotFound
	}
	if current.Version != m.ExpectedVersion {
		return ErrVersionConflict
	}
	if m.EventKey != "" {
		if _, seen := s.appliedKeys[m.EventKey]; seen {
			return ErrDuplicateEvent
		}
		s.appliedKeys[m.EventKey] = struct{}{}
	}

	stored := m.Reservation.Clone()
	if current.HoldReleasedAt != nil {
		// a released hold stays released
		stored.HoldReleasedAt = current.HoldReleasedAt
	}
	stored.Version = current.Version + 1
	s.reservations[stored.ID] = stored
	m.Reservation.Version = stored.Version
	s.appendEventsLocked(m.Events)
	return nil
}

func (s *MemoryStore) ReleaseHold(_ context.Context, reservationID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, exists := s.reservations[reservationID]
	if !exists || reservation.HoldReleasedAt != nil {
		return false, nil
	}
	t := at
	reservation.HoldReleasedAt = &t
	return true, nil
}

func (s *MemoryStore) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Reservation
	for _, r := range s.reservations {
		if r.Status == domain.StatusPending && r.CreatedAt.Before(cutoff) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetUnpublishedEvents(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OutboxEvent
	for _, ev := range s.outbox {
		if _, done := s.published[ev.ID]; done {
			continue
		}
		c := *ev
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkEventPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published[id] = struct{}{}
	return nil
}

func (s *MemoryStore) appendEventsLocked(events []domain.OutboxEvent) {
	for _, ev := range events {
		s.nextEventID++
		c := ev
		c.ID = s.nextEventID
		s.outbox = append(s.outbox, &c)
	}
}

// Close is a no-op; the store holds no background resources.
func (s *MemoryStore) Close() error {
	return nil
}
