// Package rbac computes the roles an actor holds relative to a resource.
package rbac

import (
	"context"

	policydomain "volunteer-platform/backend/internal/policy/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// CellManagerLookup answers manager-set membership. Queried on every call; nothing is cached,
// so removing a manager takes effect on the next decision.
type CellManagerLookup interface {
	IsManager(ctx context.Context, cellID, userID string) (bool, error)
	ListCellsManagedBy(ctx context.Context, userID string) ([]string, error)
}

// Resolver derives role sets from user flags, ownership and cell management.
type Resolver struct {
	managers CellManagerLookup
}

// NewResolver returns a Resolver backed by managers.
func NewResolver(managers CellManagerLookup) *Resolver {
	return &Resolver{managers: managers}
}

// Resolve returns {Anonymous} for a nil or inactive actor. Otherwise the set holds Authenticated,
// plus Staff for staff users, Owner when res is owned by actor and CellManager when res is scoped
// to a cell actor manages.
func (r *Resolver) Resolve(ctx context.Context, actor *userdomain.User, res *resourcedomain.Resource) (policydomain.RoleSet, error) {
	if actor == nil || !actor.IsActive {
		return policydomain.NewRoleSet(policydomain.RoleAnonymous), nil
	}
	roles := policydomain.NewRoleSet(policydomain.RoleAuthenticated)
	if actor.IsStaff {
		roles = roles.With(policydomain.RoleStaff)
	}
	if res == nil {
		return roles, nil
	}
	if res.OwnerID != "" && res.OwnerID == actor.ID {
		roles = roles.With(policydomain.RoleOwner)
	}
	if res.CellID != "" {
		ok, err := r.managers.IsManager(ctx, res.CellID, actor.ID)
		if err != nil {
			return policydomain.NewRoleSet(policydomain.RoleAnonymous), err
		}
		if ok {
			roles = roles.With(policydomain.RoleCellManager)
		}
	}
	return roles, nil
}

// ManagedCells lists the cells actor manages; empty for anonymous or inactive actors.
func (r *Resolver) ManagedCells(ctx context.Context, actor *userdomain.User) ([]string, error) {
	if actor == nil || !actor.IsActive {
		return nil, nil
	}
	return r.managers.ListCellsManagedBy(ctx, actor.ID)
}
