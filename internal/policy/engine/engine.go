package engine

import (
	"context"
	"fmt"
	"log"

	"volunteer-platform/backend/internal/policy/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// Deny reasons. They are for logs and audit only; callers answer "not permitted" outward.
const (
	ReasonInsufficientRole = "insufficient role"
	ReasonNoRule           = "no rule for action"
	ReasonEvaluatorError   = "evaluator error"
)

// RoleResolver classifies an actor relative to a resource.
type RoleResolver interface {
	Resolve(ctx context.Context, actor *userdomain.User, res *resourcedomain.Resource) (domain.RoleSet, error)
	ManagedCells(ctx context.Context, actor *userdomain.User) ([]string, error)
}

// Observer is told about every denial. Optional; used for audit and security telemetry.
type Observer interface {
	Denied(ctx context.Context, req Request, dec Decision)
}

// Request asks whether Actor may perform Action on Class. Actor is nil for anonymous callers.
// Resource is the persisted instance for retrieve/update/destroy; Proposed carries the
// submitted owner on create.
type Request struct {
	Actor    *userdomain.User
	Action   domain.Action
	Class    resourcedomain.Class
	Resource *resourcedomain.Resource
	Proposed *resourcedomain.Resource
}

// RowFilter shapes list queries. Unrestricted admits every row; otherwise a row is visible when
// its owner is OwnerID or it lies under one of ManagedCellIDs.
type RowFilter struct {
	Unrestricted   bool
	OwnerID        string
	ManagedCellIDs []string
}

// Decision is the engine's answer. Matched is the index of the satisfied disjunct (-1 on deny).
// Filter is set on allowed list decisions.
type Decision struct {
	Allowed bool
	Reason  string
	Matched int
	Roles   domain.RoleSet
	Filter  *RowFilter
}

// Engine resolves roles and evaluates them against the rule table.
type Engine struct {
	resolver  RoleResolver
	evaluator Evaluator
	observer  Observer
}

// New returns an Engine. observer may be nil.
func New(resolver RoleResolver, evaluator Evaluator, observer Observer) *Engine {
	return &Engine{resolver: resolver, evaluator: evaluator, observer: observer}
}

// Decide returns Allow or Deny(reason). Any resolver or evaluator failure denies and is returned.
func (e *Engine) Decide(ctx context.Context, req Request) (Decision, error) {
	res := req.Resource
	if req.Action == domain.ActionCreate || req.Action == domain.ActionList {
		res = nil
	}
	roles, err := e.resolver.Resolve(ctx, req.Actor, res)
	if err != nil {
		return e.deny(ctx, req, domain.RoleSet(0), ReasonEvaluatorError), fmt.Errorf("resolve roles: %w", err)
	}

	in := Input{
		Class:    req.Class,
		Action:   req.Action,
		Roles:    roles,
		Resource: res,
		Proposed: req.Proposed,
	}
	if req.Actor != nil && roles.Has(domain.RoleAuthenticated) {
		in.ActorID = req.Actor.ID
	}
	result, err := e.evaluator.Evaluate(ctx, in)
	if err != nil {
		return e.deny(ctx, req, roles, ReasonEvaluatorError), err
	}
	if !result.HasRule {
		return e.deny(ctx, req, roles, ReasonNoRule), nil
	}
	if !result.Allowed {
		return e.deny(ctx, req, roles, ReasonInsufficientRole), nil
	}

	dec := Decision{Allowed: true, Matched: result.Matched, Roles: roles}
	if req.Action == domain.ActionList {
		filter, err := e.rowFilter(ctx, req, roles)
		if err != nil {
			return e.deny(ctx, req, roles, ReasonEvaluatorError), err
		}
		dec.Filter = filter
	}
	return dec, nil
}

func (e *Engine) rowFilter(ctx context.Context, req Request, roles domain.RoleSet) (*RowFilter, error) {
	if !rowFiltered[req.Class] || roles.Has(domain.RoleStaff) || req.Actor == nil {
		return &RowFilter{Unrestricted: true}, nil
	}
	f := &RowFilter{OwnerID: req.Actor.ID}
	if managerScoped[req.Class] {
		cells, err := e.resolver.ManagedCells(ctx, req.Actor)
		if err != nil {
			return nil, fmt.Errorf("managed cells: %w", err)
		}
		f.ManagedCellIDs = cells
	}
	return f, nil
}

func (e *Engine) deny(ctx context.Context, req Request, roles domain.RoleSet, reason string) Decision {
	dec := Decision{Reason: reason, Matched: -1, Roles: roles}
	actor := "anonymous"
	if req.Actor != nil {
		actor = req.Actor.ID
	}
	log.Printf("authz: deny %s %s for %s: %s", req.Class, req.Action, actor, reason)
	if e.observer != nil {
		e.observer.Denied(ctx, req, dec)
	}
	return dec
}

// Observers fans a denial out to several observers.
type Observers []Observer

// Denied notifies every non-nil observer in order.
func (o Observers) Denied(ctx context.Context, req Request, dec Decision) {
	for _, obs := range o {
		if obs != nil {
			obs.Denied(ctx, req, dec)
		}
	}
}
