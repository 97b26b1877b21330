// Package domain defines roles, actions and the rule vocabulary used by the authorization engine.
package domain

import (
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
)

// Role classifies an actor relative to a resource. Roles form a set; no role outranks another.
type Role string

const (
	RoleAnonymous     Role = "anonymous"
	RoleAuthenticated Role = "authenticated"
	RoleOwner         Role = "owner"
	RoleStaff         Role = "staff"
	RoleCellManager   Role = "cell_manager"
)

var allRoles = []Role{RoleAnonymous, RoleAuthenticated, RoleOwner, RoleStaff, RoleCellManager}

// RoleSet is a set of roles stored as a bitmask.
type RoleSet uint8

func bit(r Role) RoleSet {
	for i, known := range allRoles {
		if known == r {
			return 1 << i
		}
	}
	return 0
}

// NewRoleSet returns a set holding roles.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= bit(r)
	}
	return s
}

// With returns s plus r.
func (s RoleSet) With(r Role) RoleSet { return s | bit(r) }

// Has reports whether r is in s. The zero Role is never held.
func (s RoleSet) Has(r Role) bool {
	b := bit(r)
	return b != 0 && s&b != 0
}

// Names returns the roles in s in a stable order.
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(allRoles))
	for _, r := range allRoles {
		if s.Has(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// Action is an operation on a resource class.
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDestroy  Action = "destroy"
)

// Actions lists every action.
var Actions = []Action{ActionList, ActionRetrieve, ActionCreate, ActionUpdate, ActionDestroy}

// Requirement is one disjunct of a rule. All set fields must hold:
//   - Public: satisfied by any actor, anonymous included.
//   - Role: the actor holds Role.
//   - Status: the persisted resource is in Status. Never satisfiable on create.
//   - SelfOwned: on create, the proposed resource's owner is the actor.
type Requirement struct {
	Public    bool                  `json:"public,omitempty"`
	Role      Role                  `json:"role,omitempty"`
	Status    resourcedomain.Status `json:"status,omitempty"`
	SelfOwned bool                  `json:"self_owned,omitempty"`
}

// Rule is an OR of requirements; any satisfied disjunct allows the action.
type Rule []Requirement

// RuleSet maps a class and action to its rule. A missing entry denies.
type RuleSet map[resourcedomain.Class]map[Action]Rule

// Lookup returns the rule for class and action.
func (rs RuleSet) Lookup(class resourcedomain.Class, action Action) (Rule, bool) {
	byAction, ok := rs[class]
	if !ok {
		return nil, false
	}
	r, ok := byAction[action]
	return r, ok
}

// Convenience constructors for rule tables.
var (
	Public            = Requirement{Public: true}
	SelfOwned         = Requirement{SelfOwned: true}
	Auth              = Requirement{Role: RoleAuthenticated}
	Staff             = Requirement{Role: RoleStaff}
	Owner             = Requirement{Role: RoleOwner}
	CellManager       = Requirement{Role: RoleCellManager}
	OwnerWhilePending = Requirement{Role: RoleOwner, Status: resourcedomain.StatusPending}
)

// AnyOf builds a rule from disjuncts.
func AnyOf(reqs ...Requirement) Rule { return Rule(reqs) }
