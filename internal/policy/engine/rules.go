package engine

import (
	"volunteer-platform/backend/internal/policy/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
)

// DefaultRules returns the platform's rule table. User destroy is deactivation; changing a
// cell's manager set is authorized as cell update.
func DefaultRules() domain.RuleSet {
	staffOnly := domain.AnyOf(domain.Staff)
	return domain.RuleSet{
		resourcedomain.ClassUser: {
			domain.ActionList:     staffOnly,
			domain.ActionRetrieve: domain.AnyOf(domain.Owner, domain.Staff),
			domain.ActionCreate:   domain.AnyOf(domain.Public),
			domain.ActionUpdate:   domain.AnyOf(domain.Owner, domain.Staff),
			domain.ActionDestroy:  domain.AnyOf(domain.Owner, domain.Staff),
		},
		resourcedomain.ClassPosition: {
			domain.ActionList:     domain.AnyOf(domain.Auth),
			domain.ActionRetrieve: domain.AnyOf(domain.Auth),
			domain.ActionCreate:   staffOnly,
			domain.ActionUpdate:   staffOnly,
			domain.ActionDestroy:  staffOnly,
		},
		resourcedomain.ClassApplication: {
			domain.ActionList:     domain.AnyOf(domain.Auth),
			domain.ActionRetrieve: domain.AnyOf(domain.Owner, domain.Staff),
			domain.ActionCreate:   domain.AnyOf(domain.SelfOwned, domain.Staff),
			domain.ActionUpdate:   domain.AnyOf(domain.OwnerWhilePending, domain.Staff),
			domain.ActionDestroy:  domain.AnyOf(domain.OwnerWhilePending, domain.Staff),
		},
		resourcedomain.ClassCell: {
			domain.ActionList:     domain.AnyOf(domain.Public),
			domain.ActionRetrieve: domain.AnyOf(domain.Public),
			domain.ActionCreate:   staffOnly,
			domain.ActionUpdate:   staffOnly,
			domain.ActionDestroy:  staffOnly,
		},
		resourcedomain.ClassEvent: {
			domain.ActionList:     domain.AnyOf(domain.Auth),
			domain.ActionRetrieve: domain.AnyOf(domain.Auth),
			domain.ActionCreate:   staffOnly,
			domain.ActionUpdate:   domain.AnyOf(domain.Staff, domain.CellManager),
			domain.ActionDestroy:  staffOnly,
		},
		resourcedomain.ClassParticipation: {
			domain.ActionList:     domain.AnyOf(domain.Auth),
			domain.ActionRetrieve: domain.AnyOf(domain.Owner, domain.Staff, domain.CellManager),
			domain.ActionCreate:   domain.AnyOf(domain.SelfOwned, domain.Staff),
			domain.ActionUpdate:   domain.AnyOf(domain.OwnerWhilePending, domain.Staff, domain.CellManager),
			domain.ActionDestroy:  domain.AnyOf(domain.OwnerWhilePending, domain.Staff),
		},
		resourcedomain.ClassPage: {
			domain.ActionList:     domain.AnyOf(domain.Public),
			domain.ActionRetrieve: domain.AnyOf(domain.Public),
			domain.ActionCreate:   staffOnly,
			domain.ActionUpdate:   staffOnly,
			domain.ActionDestroy:  staffOnly,
		},
		resourcedomain.ClassDonation: {
			domain.ActionList:     staffOnly,
			domain.ActionRetrieve: domain.AnyOf(domain.Owner, domain.Staff),
			domain.ActionCreate:   domain.AnyOf(domain.Auth),
			domain.ActionUpdate:   staffOnly,
			domain.ActionDestroy:  staffOnly,
		},
	}
}

// rowFiltered lists classes whose list action is narrowed to the actor's own rows (plus managed
// cells for participations) unless the actor is staff.
var rowFiltered = map[resourcedomain.Class]bool{
	resourcedomain.ClassApplication:   true,
	resourcedomain.ClassParticipation: true,
}

// managerScoped lists classes whose list filter also admits rows under cells the actor manages.
var managerScoped = map[resourcedomain.Class]bool{
	resourcedomain.ClassParticipation: true,
}
