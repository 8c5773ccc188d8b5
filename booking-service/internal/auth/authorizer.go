package auth

import (
	"fmt"

	"github.com/rnqayush/starter-sub001/booking-service/internal/domain"
)

// RoleAuthorizer answers permission questions from the actor's role and its
// relation to the unit and reservation:
//   - admins and the system actor may do anything
//   - the manager who owns a unit may do anything with it and its reservations
//   - the requester of a reservation may view and cancel it
//   - any authenticated actor may book and view units
type RoleAuthorizer struct{}

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{}
}

func (a *RoleAuthorizer) Authorize(actor domain.Actor, action domain.Action, unit *domain.BookableUnit, res *domain.Reservation) error {
	if actor.ID == "" {
		return fmt.Errorf("%w: anonymous actor", domain.ErrForbidden)
	}

	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return nil
	}

	if actor.Role == domain.RoleManager && unit != nil && unit.OwnerID == actor.ID {
		return nil
	}

	switch action {
	case domain.ActionBook:
		return nil
	case domain.ActionView:
		if res == nil || res.RequesterID == actor.ID {
			return nil
		}
	case domain.ActionCancel:
		if res != nil && res.RequesterID == actor.ID {
			return nil
		}
	}

	return fmt.Errorf("%w: %s %s may not %s", domain.ErrForbidden, actor.Role, actor.ID, action)
}
