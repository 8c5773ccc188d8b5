package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
)

const unitColumns = `id, owner_id, name, kind, granularity, capacity, unit_price, currency,
	cancellation_policy, adjustments, promo_codes, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) GetUnit(ctx context.Context, unitID string) (*domain.BookableUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM bookable_units WHERE id = $1`
	unit, err := scanUnit(r.db.QueryRowContext(ctx, query, unitID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUnitNotFound
	}
	if err != nil {
		return nil, translate("query unit", err)
	}
	return unit, nil
}

func (r *Repository) SaveUnit(ctx context.Context, unit *domain.BookableUnit) error {
	policy, err := json.Marshal(unit.Policy)
	if err != nil {
		return fmt.Errorf("marshal cancellation policy: %w", err)
	}
	adjustments, err := json.Marshal(nonNilAdjustments(unit.Adjustments))
	if err != nil {
		return fmt.Errorf("marshal adjustments: %w", err)
	}
	promos, err := json.Marshal(nonNilPromos(unit.PromoCodes))
	if err != nil {
		return fmt.Errorf("marshal promo codes: %w", err)
	}

	query := `INSERT INTO bookable_units (` + unitColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          ON CONFLICT (id) DO UPDATE SET
	              owner_id = EXCLUDED.owner_id,
	              name = EXCLUDED.name,
	              kind = EXCLUDED.kind,
	              granularity = EXCLUDED.granularity,
	              capacity = EXCLUDED.capacity,
	              unit_price = EXCLUDED.unit_price,
	              currency = EXCLUDED.currency,
	              cancellation_policy = EXCLUDED.cancellation_policy,
	              adjustments = EXCLUDED.adjustments,
	              promo_codes = EXCLUDED.promo_codes,
	              updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		unit.ID,
		unit.OwnerID,
		unit.Name,
		unit.Kind,
		unit.Granularity,
		unit.Capacity,
		unit.UnitPrice,
		unit.Currency,
		policy,
		adjustments,
		promos,
		unit.UpdatedAt.UTC())
	return translate("save unit", err)
}

func scanUnit(row rowScanner) (*domain.BookableUnit, error) {
	var unit domain.BookableUnit
	var policy, adjustments, promos []byte
	if err := row.Scan(
		&unit.ID,
		&unit.OwnerID,
		&unit.Name,
		&unit.Kind,
		&unit.Granularity,
		&unit.Capacity,
		&unit.UnitPrice,
		&unit.Currency,
		&policy,
		&adjustments,
		&promos,
		&unit.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(policy, &unit.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal cancellation policy: %w", err)
	}
	if err := json.Unmarshal(adjustments, &unit.Adjustments); err != nil {
		return nil, fmt.Errorf("unmarshal adjustments: %w", err)
	}
	if err := json.Unmarshal(promos, &unit.PromoCodes); err != nil {
		return nil, fmt.Errorf("unmarshal promo codes: %w", err)
	}
	unit.UpdatedAt = unit.UpdatedAt.UTC()
	return &unit, nil
}

func nonNilAdjustments(a []domain.Adjustment) []domain.Adjustment {
	if a == nil {
		return []domain.Adjustment{}
	}
	return a
}

func nonNilPromos(p map[string]domain.Adjustment) map[string]domain.Adjustment {
	if p == nil {
		return map[string]domain.Adjustment{}
	}
	return p
}
