package engine

import (
	"context"

	"volunteer-platform/backend/internal/policy/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
)

// Input is everything an evaluator may inspect. Resource is the persisted instance (nil for
// list and create); Proposed is the submitted data on create.
type Input struct {
	Class    resourcedomain.Class
	Action   domain.Action
	Roles    domain.RoleSet
	ActorID  string
	Resource *resourcedomain.Resource
	Proposed *resourcedomain.Resource
}

// Result is an evaluator's verdict. Matched is the index of the first satisfied disjunct, or -1.
type Result struct {
	HasRule bool
	Allowed bool
	Matched int
}

// Evaluator decides whether roles satisfy the rule for a class and action.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Result, error)
}

// TableEvaluator evaluates a Go rule table.
type TableEvaluator struct {
	rules domain.RuleSet
}

// NewTableEvaluator returns an evaluator over rules.
func NewTableEvaluator(rules domain.RuleSet) *TableEvaluator {
	return &TableEvaluator{rules: rules}
}

// Evaluate returns Allowed on the first satisfied disjunct. There is no explicit deny.
func (e *TableEvaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	rule, ok := e.rules.Lookup(in.Class, in.Action)
	if !ok {
		return Result{Matched: -1}, nil
	}
	for i, req := range rule {
		if satisfied(req, in) {
			return Result{HasRule: true, Allowed: true, Matched: i}, nil
		}
	}
	return Result{HasRule: true, Matched: -1}, nil
}

func satisfied(req domain.Requirement, in Input) bool {
	if req.Public {
		return true
	}
	creating := in.Action == domain.ActionCreate
	if req.SelfOwned {
		if !creating || in.ActorID == "" || in.Proposed == nil || in.Proposed.OwnerID != in.ActorID {
			return false
		}
	}
	if req.Role != "" && !in.Roles.Has(req.Role) {
		return false
	}
	if req.Status != "" {
		// State-dependent disjuncts need a persisted instance.
		if creating || in.Resource == nil || in.Resource.Status != req.Status {
			return false
		}
	}
	return req.SelfOwned || req.Role != ""
}
