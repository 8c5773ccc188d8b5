package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
)

const reservationColumns = `id, booking_number, unit_id, owner_id, requester_id,
	start_at, end_at, occupied_start, occupied_end, quantity, guests, pricing, paid_amount,
	status, cancellation, created_at, updated_at, confirmed_at, checked_in_at, checked_out_at,
	cancelled_at, no_show_at, hold_released_at, version`

// holdingFilter selects reservations that count against a unit's capacity.
const holdingFilter = `status IN ('pending', 'confirmed', 'checked_in') AND hold_released_at IS NULL`

func (r *Repository) CommittedQuantity(ctx context.Context, unitID string, occupied interval.Interval) (int, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookable_units WHERE id = $1)`, unitID).Scan(&exists)
	if err != nil {
		return 0, translate("check unit", err)
	}
	if !exists {
		return 0, store.ErrUnitNotFound
	}
	committed, err := committedQuantity(ctx, r.db, unitID, occupied)
	if err != nil {
		return 0, translate("sum committed quantity", err)
	}
	return committed, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func committedQuantity(ctx context.Context, q querier, unitID string, occupied interval.Interval) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM reservations
	          WHERE unit_id = $1 AND ` + holdingFilter + `
	          AND occupied_start < $3 AND $2 < occupied_end`

	var total int
	err := q.QueryRowContext(ctx, query, unitID, occupied.Start.UTC(), occupied.End.UTC()).Scan(&total)
	return total, err
}

// Hold locks the unit row for the rest of the transaction, so concurrent holds
// on the same unit queue up behind each other and each sees the committed
// quantity left by the previous one.
func (r *Repository) Hold(ctx context.Context, unitID string, occupied interval.Interval, fn store.HoldFunc) (*domain.Reservation, error) {
	var stored *domain.Reservation
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + unitColumns + ` FROM bookable_units WHERE id = $1 FOR UPDATE`
		unit, err := scanUnit(tx.QueryRowContext(ctx, query, unitID))
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrUnitNotFound
		}
		if err != nil {
			return translate("lock unit", err)
		}

		committed, err := committedQuantity(ctx, tx, unitID, occupied)
		if err != nil {
			return translate("sum committed quantity", err)
		}

		res, events, err := fn(unit, committed)
		if err != nil {
			return err
		}
		res.Version = 1
		if err := insertReservation(ctx, tx, res); err != nil {
			return err
		}
		if err := insertEvents(ctx, tx, events); err != nil {
			return err
		}
		stored = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func insertReservation(ctx context.Context, tx *sql.Tx, res *domain.Reservation) error {
	pricing, cancellation, err := marshalReservation(res)
	if err != nil {
		return err
	}

	query := `INSERT INTO reservations (` + reservationColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	                  $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = tx.ExecContext(ctx, query,
		res.ID,
		res.BookingNumber,
		res.UnitID,
		res.OwnerID,
		res.RequesterID,
		res.Interval.Start.UTC(),
		res.Interval.End.UTC(),
		res.Occupied.Start.UTC(),
		res.Occupied.End.UTC(),
		res.Quantity,
		res.Guests,
		pricing,
		res.PaidAmount,
		res.Status,
		nullJSON(cancellation),
		res.CreatedAt.UTC(),
		res.UpdatedAt.UTC(),
		res.ConfirmedAt,
		res.CheckedInAt,
		res.CheckedOutAt,
		res.CancelledAt,
		res.NoShowAt,
		res.HoldReleasedAt,
		res.Version)
	return translate("insert reservation", err)
}

func (r *Repository) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrReservationNotFound
	}
	if err != nil {
		return nil, translate("query reservation", err)
	}
	return res, nil
}

// UpdateReservation writes everything but the identity, interval and hold
// columns. A released hold is never reset.
func (r *Repository) UpdateReservation(ctx context.Context, m store.Mutation) error {
	res := m.Reservation
	pricing, cancellation, err := marshalReservation(res)
	if err != nil {
		return err
	}

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE reservations SET
		              pricing = $3, paid_amount = $4, status = $5, cancellation = $6, updated_at = $7,
		              confirmed_at = $8, checked_in_at = $9, checked_out_at = $10, cancelled_at = $11,
		              no_show_at = $12, hold_released_at = COALESCE(hold_released_at, $13),
		              version = version + 1
		          WHERE id = $1 AND version = $2`

		result, err := tx.ExecContext(ctx, query,
			res.ID,
			m.ExpectedVersion,
			pricing,
			res.PaidAmount,
			res.Status,
			nullJSON(cancellation),
			res.UpdatedAt.UTC(),
			res.ConfirmedAt,
			res.CheckedInAt,
			res.CheckedOutAt,
			res.CancelledAt,
			res.NoShowAt,
			res.HoldReleasedAt)
		if err != nil {
			return translate("update reservation", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return translate("update reservation", err)
		}
		if rows == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, res.ID).Scan(&exists); err != nil {
				return translate("check reservation", err)
			}
			if !exists {
				return store.ErrReservationNotFound
			}
			return store.ErrVersionConflict
		}

		if m.EventKey != "" {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO processed_events (event_key) VALUES ($1) ON CONFLICT (event_key) DO NOTHING`, m.EventKey)
			if err != nil {
				return translate("record processed event", err)
			}
			if n, err := result.RowsAffected(); err != nil {
				return translate("record processed event", err)
			} else if n == 0 {
				return store.ErrDuplicateEvent
			}
		}

		return insertEvents(ctx, tx, m.Events)
	})
	if err != nil {
		return err
	}
	res.Version = m.ExpectedVersion + 1
	return nil
}

func (r *Repository) ReleaseHold(ctx context.Context, reservationID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET hold_released_at = $2 WHERE id = $1 AND hold_released_at IS NULL`,
		reservationID, at.UTC())
	if err != nil {
		return false, translate("release hold", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, translate("release hold", err)
	}
	return rows > 0, nil
}

// ListPendingBefore returns the oldest pending reservations first. A limit of
// zero or less returns all of them.
func (r *Repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE status = 'pending' AND created_at < $1
	          ORDER BY created_at ASC
	          LIMIT NULLIF($2, 0)`

	if limit < 0 {
		limit = 0
	}
	rows, err := r.db.QueryContext(ctx, query, cutoff.UTC(), limit)
	if err != nil {
		return nil, translate("query pending reservations", err)
	}
	defer rows.Close()

	var out []*domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, translate("scan reservation row", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("row iteration error", err)
	}
	return out, nil
}

func marshalReservation(res *domain.Reservation) (pricing []byte, cancellation []byte, err error) {
	pricing, err = json.Marshal(res.Pricing)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal pricing: %w", err)
	}
	if res.Cancellation != nil {
		cancellation, err = json.Marshal(res.Cancellation)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal cancellation: %w", err)
		}
	}
	return pricing, cancellation, nil
}

// nullJSON keeps an absent document NULL instead of an empty value.
func nullJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var pricing, cancellation []byte
	if err := row.Scan(
		&res.ID,
		&res.BookingNumber,
		&res.UnitID,
		&res.OwnerID,
		&res.RequesterID,
		&res.Interval.Start,
		&res.Interval.End,
		&res.Occupied.Start,
		&res.Occupied.End,
		&res.Quantity,
		&res.Guests,
		&pricing,
		&res.PaidAmount,
		&res.Status,
		&cancellation,
		&res.CreatedAt,
		&res.UpdatedAt,
		&res.ConfirmedAt,
		&res.CheckedInAt,
		&res.CheckedOutAt,
		&res.CancelledAt,
		&res.NoShowAt,
		&res.HoldReleasedAt,
		&res.Version,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pricing, &res.Pricing); err != nil {
		return nil, fmt.Errorf("unmarshal pricing: %w", err)
	}
	if cancellation != nil {
		res.Cancellation = &domain.Cancellation{}
		if err := json.Unmarshal(cancellation, res.Cancellation); err != nil {
			return nil, fmt.Errorf("unmarshal cancellation: %w", err)
		}
	}
	normalizeTimes(&res)
	return &res, nil
}

func normalizeTimes(res *domain.Reservation) {
	res.Interval.Start = res.Interval.Start.UTC()
	res.Interval.End = res.Interval.End.UTC()
	res.Occupied.Start = res.Occupied.Start.UTC()
	res.Occupied.End = res.Occupied.End.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	res.UpdatedAt = res.UpdatedAt.UTC()
	for _, t := range []*time.Time{res.ConfirmedAt, res.CheckedInAt, res.CheckedOutAt, res.CancelledAt, res.NoShowAt, res.HoldReleasedAt} {
		if t != nil {
			*t = t.UTC()
		}
	}
}
