package domain

import (
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/shopspring/decimal"
)

// ReservationRequest is the unpersisted input of a booking attempt.
type ReservationRequest struct {
	UnitID      string            `json:"unit_id"`
	Interval    interval.Interval `json:"interval"`
	Quantity    int               `json:"quantity"`
	RequesterID string            `json:"requester_id"`
	Guests      int               `json:"guests"`
	PromoCode   string            `json:"promo_code,omitempty"`
	AddOns      []AddOn           `json:"add_ons,omitempty"`
}

// Validate checks the request shape without touching any store.
func (r ReservationRequest) Validate() error {
	if r.UnitID == "" {
		return InvalidRequestf("unit_id is required")
	}
	if r.RequesterID == "" {
		return InvalidRequestf("requester is required")
	}
	if r.Quantity <= 0 {
		return InvalidRequestf("quantity must be greater than 0")
	}
	if r.Guests < 0 {
		return InvalidRequestf("guests must not be negative")
	}
	if r.Interval.Start.IsZero() || r.Interval.End.IsZero() {
		return InvalidRequestf("interval start and end are required")
	}
	if r.Interval.End.Before(r.Interval.Start) {
		return InvalidRequestf("interval end must not be before start")
	}
	for _, a := range r.AddOns {
		if a.Quantity <= 0 || a.Price.IsNegative() {
			return InvalidRequestf("add-on %q needs a positive quantity and a non-negative price", a.Name)
		}
	}
	return nil
}

// ValidateFor checks the request against the unit it targets.
func (r ReservationRequest) ValidateFor(unit *BookableUnit) error {
	if r.Quantity > unit.Capacity {
		return InvalidRequestf("quantity %d exceeds unit capacity %d", r.Quantity, unit.Capacity)
	}
	switch unit.Kind {
	case KindSingleSlot:
		// start == end is the normal shape of a single-slot request
	default:
		if !r.Interval.End.After(r.Interval.Start) {
			return InvalidRequestf("interval end must be after start")
		}
		if interval.Duration(r.Interval, unit.BillingUnit()) < 1 {
			return InvalidRequestf("interval must cover at least one %s", unit.BillingUnit())
		}
	}
	if len(r.AddOns) > 0 && unit.Granularity != PerEvent {
		return InvalidRequestf("add-ons are only priced for per_event units")
	}
	return nil
}

type AdjustmentLine struct {
	Name     string             `json:"name"`
	Category AdjustmentCategory `json:"category"`
	Amount   decimal.Decimal    `json:"amount"`
}

type PriceBreakdown struct {
	Currency  string           `json:"currency"`
	Base      decimal.Decimal  `json:"base"`
	Taxes     decimal.Decimal  `json:"taxes"`
	Fees      decimal.Decimal  `json:"fees"`
	Discounts decimal.Decimal  `json:"discounts"`
	Total     decimal.Decimal  `json:"total"`
	Lines     []AdjustmentLine `json:"lines,omitempty"`
}

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
	RefundFailed    RefundStatus = "failed"
)

type Cancellation struct {
	Reason        string          `json:"reason"`
	CancelledBy   string          `json:"cancelled_by"`
	RefundPercent decimal.Decimal `json:"refund_percent"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	RefundStatus  RefundStatus    `json:"refund_status"`
}

// Reservation is the persisted booking. It is never deleted, only moved into a terminal status.
type Reservation struct {
	ID            string            `json:"id"`
	BookingNumber string            `json:"booking_number"`
	UnitID        string            `json:"unit_id"`
	OwnerID       string            `json:"owner_id"`
	RequesterID   string            `json:"requester_id"`
	Interval      interval.Interval `json:"interval"`
	// Occupied is Interval normalized to the unit's billing granularity; overlap
	// queries run against it.
	Occupied     interval.Interval `json:"-"`
	Quantity     int               `json:"quantity"`
	Guests       int               `json:"guests"`
	Pricing      PriceBreakdown    `json:"pricing"`
	PaidAmount   decimal.Decimal   `json:"paid_amount"`
	Status       Status            `json:"status"`
	Cancellation *Cancellation     `json:"cancellation,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt   *time.Time `json:"checked_out_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	NoShowAt       *time.Time `json:"no_show_at,omitempty"`
	HoldReleasedAt *time.Time `json:"hold_released_at,omitempty"`

	// Version is bumped on every persisted update for optimistic concurrency.
	Version int `json:"version"`
}

// HoldsCapacity reports whether the reservation still counts against its unit.
func (r *Reservation) HoldsCapacity() bool {
	return r.Status.HoldsCapacity() && r.HoldReleasedAt == nil
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (r *Reservation) Clone() *Reservation {
	c := *r
	if r.Cancellation != nil {
		cc := *r.Cancellation
		c.Cancellation = &cc
	}
	c.Pricing.Lines = append([]AdjustmentLine(nil), r.Pricing.Lines...)
	for _, p := range []**time.Time{&c.ConfirmedAt, &c.CheckedInAt, &c.CheckedOutAt, &c.CancelledAt, &c.NoShowAt, &c.HoldReleasedAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return &c
}

// stamp records the transition timestamp for the status just entered.
func (r *Reservation) stamp(s Status, at time.Time) {
	t := at
	switch s {
	case StatusConfirmed:
		r.ConfirmedAt = &t
	case StatusCheckedIn:
		r.CheckedInAt = &t
	case StatusCheckedOut:
		r.CheckedOutAt = &t
	case StatusCancelled:
		r.CancelledAt = &t
	case StatusNoShow:
		r.NoShowAt = &t
	}
}

// MoveTo validates and applies a transition, recording its timestamp.
func (r *Reservation) MoveTo(target Status, at time.Time) error {
	if !CanTransitionTo(r.Status, target) {
		return &TransitionError{From: r.Status, To: target}
	}
	r.Status = target
	r.stamp(target, at)
	r.UpdatedAt = at
	return nil
}

// Outstanding is what is left to pay.
func (r *Reservation) Outstanding() decimal.Decimal {
	out := r.Pricing.Total.Sub(r.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
