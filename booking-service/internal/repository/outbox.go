package repository

import (
	"context"
	"database/sql"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
)

func insertEvents(ctx context.Context, tx *sql.Tx, events []domain.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return translate("prepare outbox insert", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.EventID, ev.AggregateID, ev.EventType, ev.Payload, ev.CreatedAt.UTC()); err != nil {
			return translate("insert outbox event", err)
		}
	}
	return nil
}

func (r *Repository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := `SELECT id, event_id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE published_at IS NULL
	          ORDER BY id ASC
	          LIMIT NULLIF($1, 0)`

	if limit < 0 {
		limit = 0
	}
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, translate("query unpublished events", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, translate("scan outbox row", err)
		}
		ev.CreatedAt = ev.CreatedAt.UTC()
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("row iteration error", err)
	}
	return events, nil
}

func (r *Repository) MarkEventPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET published_at = NOW() WHERE id = $1`, id)
	return translate("mark event published", err)
}
