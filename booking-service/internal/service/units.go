package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"go.uber.org/zap"
)

// GetUnit returns the full unit to its owner and admins, and the public view to everyone else.
func (s *BookingService) GetUnit(ctx context.Context, actor domain.Actor, unitID string) (*domain.BookableUnit, error) {
	unit, err := s.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, domain.ActionView, unit, nil); err != nil {
		return nil, err
	}
	if s.authz.Authorize(actor, domain.ActionManageUnit, unit, nil) != nil {
		return unit.PublicView(), nil
	}
	return unit, nil
}

// UpsertUnit creates or replaces a unit. Only the owning manager or an admin
// may change an existing unit, and ownership cannot be handed over by a manager.
// Existing reservations are never touched; shrinking capacity below what is
// already committed only makes the unit unavailable.
func (s *BookingService) UpsertUnit(ctx context.Context, actor domain.Actor, unit *domain.BookableUnit) (*domain.BookableUnit, error) {
	if unit.OwnerID == "" && actor.Role == domain.RoleManager {
		unit.OwnerID = actor.ID
	}
	if err := unit.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.GetUnit(ctx, unit.ID)
	switch {
	case err == nil:
		if err := s.authz.Authorize(actor, domain.ActionManageUnit, existing, nil); err != nil {
			return nil, err
		}
		if existing.OwnerID != unit.OwnerID && actor.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("%w: only an admin may change the owner of a unit", domain.ErrForbidden)
		}
	case errors.Is(err, store.ErrUnitNotFound):
		if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
			return nil, fmt.Errorf("%w: %s may not create units", domain.ErrForbidden, actor.Role)
		}
		if err := s.authz.Authorize(actor, domain.ActionManageUnit, unit, nil); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	unit.UpdatedAt = s.clock.Now()
	if err := s.store.SaveUnit(ctx, unit); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, unit.ID)

	s.logger.Info("unit saved",
		zap.String("unit_id", unit.ID),
		zap.String("owner_id", unit.OwnerID),
		zap.Int("capacity", unit.Capacity))
	return unit, nil
}
