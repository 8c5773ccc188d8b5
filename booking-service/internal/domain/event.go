package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventReservationCreated       = "reservation.created"
	EventReservationStatusChanged = "reservation.status_changed"
	EventReservationCancelled     = "reservation.cancelled"
	EventReservationPaid          = "reservation.paid"
	EventReservationRefundUpdated = "reservation.refund_updated"
)

// OutboxEvent is written in the same atomic store call as the reservation change it describes.
type OutboxEvent struct {
	ID          int64     `json:"-"`
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Payload     []byte    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReservationEvent is the payload published for every reservation event.
type ReservationEvent struct {
	EventID       string           `json:"event_id"`
	EventType     string           `json:"event_type"`
	ReservationID string           `json:"reservation_id"`
	BookingNumber string           `json:"booking_number"`
	UnitID        string           `json:"unit_id"`
	RequesterID   string           `json:"requester_id"`
	Status        Status           `json:"status"`
	PreviousState Status           `json:"previous_status,omitempty"`
	Quantity      int              `json:"quantity"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	Total         decimal.Decimal  `json:"total"`
	PaidAmount    decimal.Decimal  `json:"paid_amount"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

func NewReservationEvent(eventType string, res *Reservation, previous Status, at time.Time) (OutboxEvent, error) {
	id := uuid.NewString()
	payload := ReservationEvent{
		EventID:       id,
		EventType:     eventType,
		ReservationID: res.ID,
		BookingNumber: res.BookingNumber,
		UnitID:        res.UnitID,
		RequesterID:   res.RequesterID,
		Status:        res.Status,
		PreviousState: previous,
		Quantity:      res.Quantity,
		Start:         res.Interval.Start,
		End:           res.Interval.End,
		Total:         res.Pricing.Total,
		PaidAmount:    res.PaidAmount,
		OccurredAt:    at,
	}
	if res.Cancellation != nil {
		amount := res.Cancellation.RefundAmount
		payload.RefundAmount = &amount
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		EventID:     id,
		AggregateID: res.ID,
		EventType:   eventType,
		Payload:     b,
		CreatedAt:   at,
	}, nil
}

type PaymentEventType string

const (
	PaymentSucceeded       PaymentEventType = "payment.succeeded"
	PaymentFailed          PaymentEventType = "payment.failed"
	PaymentRefundCompleted PaymentEventType = "refund.completed"
	PaymentRefundFailed    PaymentEventType = "refund.failed"
)

// PaymentEvent is reported asynchronously by the payment collaborator.
type PaymentEvent struct {
	EventID       string           `json:"event_id"`
	Type          PaymentEventType `json:"type"`
	ReservationID string           `json:"reservation_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

type NotificationKind string

const (
	NotifyBooked    NotificationKind = "reservation.booked"
	NotifyConfirmed NotificationKind = "reservation.confirmed"
	NotifyCancelled NotificationKind = "reservation.cancelled"
	NotifyStatus    NotificationKind = "reservation.status_changed"
)

// Notification is handed to the notifier without waiting for delivery.
type Notification struct {
	Kind          NotificationKind `json:"kind"`
	ReservationID string           `json:"reservation_id"`
	BookingNumber string           `json:"booking_number"`
	RequesterID   string           `json:"requester_id"`
	OwnerID       string           `json:"owner_id"`
	Status        Status           `json:"status"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
}
