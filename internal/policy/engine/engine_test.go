package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"volunteer-platform/backend/internal/platform/rbac"
	"volunteer-platform/backend/internal/policy/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

type memManagers struct {
	mu    sync.Mutex
	cells map[string]map[string]bool
}

func (m *memManagers) IsManager(ctx context.Context, cellID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[cellID][userID], nil
}

func (m *memManagers) ListCellsManagedBy(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for c, users := range m.cells {
		if users[userID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memManagers) remove(cellID, userID string) {
	m.mu.Lock()
	delete(m.cells[cellID], userID)
	m.mu.Unlock()
}

type recordingObserver struct {
	mu     sync.Mutex
	denied []Decision
}

func (o *recordingObserver) Denied(ctx context.Context, req Request, dec Decision) {
	o.mu.Lock()
	o.denied = append(o.denied, dec)
	o.mu.Unlock()
}

var (
	owner   = &userdomain.User{ID: "U", IsActive: true}
	staff   = &userdomain.User{ID: "S", IsActive: true, IsStaff: true}
	manager = &userdomain.User{ID: "M", IsActive: true}
	other   = &userdomain.User{ID: "O", IsActive: true}
)

func newTestEngine(t *testing.T) (*Engine, *memManagers, *recordingObserver) {
	t.Helper()
	managers := &memManagers{cells: map[string]map[string]bool{"C": {"M": true}}}
	obs := &recordingObserver{}
	return New(rbac.NewResolver(managers), NewTableEvaluator(DefaultRules()), obs), managers, obs
}

func participation(status resourcedomain.Status) *resourcedomain.Resource {
	return &resourcedomain.Resource{Class: resourcedomain.ClassParticipation, ID: "P", OwnerID: "U", CellID: "C", Status: status}
}

func decide(t *testing.T, e *Engine, req Request) Decision {
	t.Helper()
	dec, err := e.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	return dec
}

func TestEngine_ParticipationEditOwnStateMachine(t *testing.T) {
	e, _, _ := newTestEngine(t)

	testCases := []struct {
		name   string
		actor  *userdomain.User
		status resourcedomain.Status
		want   bool
	}{
		{"owner pending", owner, resourcedomain.StatusPending, true},
		{"owner accepted", owner, resourcedomain.StatusAccepted, false},
		{"owner declined", owner, resourcedomain.StatusDeclined, false},
		{"staff accepted", staff, resourcedomain.StatusAccepted, true},
		{"staff declined", staff, resourcedomain.StatusDeclined, true},
		{"manager accepted", manager, resourcedomain.StatusAccepted, true},
		{"other pending", other, resourcedomain.StatusPending, false},
		{"anonymous pending", nil, resourcedomain.StatusPending, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dec := decide(t, e, Request{
				Actor:    tc.actor,
				Action:   domain.ActionUpdate,
				Class:    resourcedomain.ClassParticipation,
				Resource: participation(tc.status),
			})
			if dec.Allowed != tc.want {
				t.Errorf("Allowed = %v, want %v (reason %q)", dec.Allowed, tc.want, dec.Reason)
			}
			if !tc.want && dec.Reason != ReasonInsufficientRole {
				t.Errorf("Reason = %q, want %q", dec.Reason, ReasonInsufficientRole)
			}
		})
	}
}

func TestEngine_CellManagerScenario(t *testing.T) {
	e, managers, _ := newTestEngine(t)
	req := Request{Actor: manager, Action: domain.ActionUpdate, Class: resourcedomain.ClassParticipation, Resource: participation(resourcedomain.StatusAccepted)}

	if dec := decide(t, e, req); !dec.Allowed {
		t.Fatalf("manager update denied: %q", dec.Reason)
	}
	managers.remove("C", "M")
	if dec := decide(t, e, req); dec.Allowed {
		t.Fatal("removed manager must be denied on the next request")
	}
}

func TestEngine_ManagerCannotDestroy(t *testing.T) {
	e, _, _ := newTestEngine(t)
	dec := decide(t, e, Request{Actor: manager, Action: domain.ActionDestroy, Class: resourcedomain.ClassParticipation, Resource: participation(resourcedomain.StatusPending)})
	if dec.Allowed {
		t.Error("cell managers may not destroy participations")
	}
}

func TestEngine_CreateForSelf(t *testing.T) {
	e, _, _ := newTestEngine(t)

	testCases := []struct {
		name     string
		actor    *userdomain.User
		proposed string
		want     bool
	}{
		{"self", owner, "U", true},
		{"for someone else", owner, "O", false},
		{"staff for someone else", staff, "O", true},
		{"anonymous", nil, "", false},
	}
	for _, class := range []resourcedomain.Class{resourcedomain.ClassParticipation, resourcedomain.ClassApplication} {
		for _, tc := range testCases {
			t.Run(string(class)+"/"+tc.name, func(t *testing.T) {
				dec := decide(t, e, Request{
					Actor:    tc.actor,
					Action:   domain.ActionCreate,
					Class:    class,
					Proposed: &resourcedomain.Resource{Class: class, OwnerID: tc.proposed},
				})
				if dec.Allowed != tc.want {
					t.Errorf("Allowed = %v, want %v", dec.Allowed, tc.want)
				}
			})
		}
	}
}

func TestEngine_CreateSkipsStatusDisjuncts(t *testing.T) {
	rules := domain.RuleSet{
		resourcedomain.ClassApplication: {domain.ActionCreate: domain.AnyOf(domain.OwnerWhilePending)},
	}
	e := New(rbac.NewResolver(&memManagers{}), NewTableEvaluator(rules), nil)
	dec := decide(t, e, Request{
		Actor:    owner,
		Action:   domain.ActionCreate,
		Class:    resourcedomain.ClassApplication,
		Resource: &resourcedomain.Resource{OwnerID: "U", Status: resourcedomain.StatusPending},
	})
	if dec.Allowed {
		t.Error("status disjuncts must never satisfy a create")
	}
}

func TestEngine_PublicAndAnonymous(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if dec := decide(t, e, Request{Action: domain.ActionList, Class: resourcedomain.ClassCell}); !dec.Allowed {
		t.Error("anonymous cell list should be allowed")
	}
	if dec := decide(t, e, Request{Action: domain.ActionCreate, Class: resourcedomain.ClassUser}); !dec.Allowed {
		t.Error("anonymous registration should be allowed")
	}
	if dec := decide(t, e, Request{Action: domain.ActionList, Class: resourcedomain.ClassEvent}); dec.Allowed {
		t.Error("anonymous event list should be denied")
	}
}

func TestEngine_InactiveStaffIsAnonymous(t *testing.T) {
	e, _, _ := newTestEngine(t)
	inactive := &userdomain.User{ID: "S2", IsStaff: true}
	dec := decide(t, e, Request{Actor: inactive, Action: domain.ActionUpdate, Class: resourcedomain.ClassPosition, Resource: &resourcedomain.Resource{ID: "pos"}})
	if dec.Allowed {
		t.Error("inactive staff must hold no elevated roles")
	}
}

func TestEngine_UserDestroy(t *testing.T) {
	e, _, _ := newTestEngine(t)
	self := &resourcedomain.Resource{Class: resourcedomain.ClassUser, ID: "U", OwnerID: "U"}
	if dec := decide(t, e, Request{Actor: owner, Action: domain.ActionDestroy, Class: resourcedomain.ClassUser, Resource: self}); !dec.Allowed {
		t.Error("a user may deactivate itself")
	}
	if dec := decide(t, e, Request{Actor: other, Action: domain.ActionDestroy, Class: resourcedomain.ClassUser, Resource: self}); dec.Allowed {
		t.Error("another user may not deactivate U")
	}
}

func TestEngine_NoRule(t *testing.T) {
	e, _, obs := newTestEngine(t)
	dec := decide(t, e, Request{Actor: staff, Action: domain.Action("archive"), Class: resourcedomain.ClassEvent})
	if dec.Allowed || dec.Reason != ReasonNoRule {
		t.Errorf("Decision = %+v, want deny %q", dec, ReasonNoRule)
	}
	if len(obs.denied) != 1 {
		t.Errorf("observer saw %d denials, want 1", len(obs.denied))
	}
}

func TestEngine_RowFilter(t *testing.T) {
	e, _, _ := newTestEngine(t)

	dec := decide(t, e, Request{Actor: manager, Action: domain.ActionList, Class: resourcedomain.ClassParticipation})
	if !dec.Allowed || dec.Filter == nil {
		t.Fatalf("manager list = %+v, want allowed with filter", dec)
	}
	want := &RowFilter{OwnerID: "M", ManagedCellIDs: []string{"C"}}
	if !reflect.DeepEqual(dec.Filter, want) {
		t.Errorf("Filter = %+v, want %+v", dec.Filter, want)
	}

	dec = decide(t, e, Request{Actor: owner, Action: domain.ActionList, Class: resourcedomain.ClassApplication})
	if dec.Filter == nil || dec.Filter.Unrestricted || dec.Filter.OwnerID != "U" || dec.Filter.ManagedCellIDs != nil {
		t.Errorf("application Filter = %+v, want owner-only U", dec.Filter)
	}

	dec = decide(t, e, Request{Actor: staff, Action: domain.ActionList, Class: resourcedomain.ClassParticipation})
	if dec.Filter == nil || !dec.Filter.Unrestricted {
		t.Errorf("staff Filter = %+v, want unrestricted", dec.Filter)
	}

	dec = decide(t, e, Request{Actor: owner, Action: domain.ActionList, Class: resourcedomain.ClassEvent})
	if dec.Filter == nil || !dec.Filter.Unrestricted {
		t.Errorf("event Filter = %+v, want unrestricted", dec.Filter)
	}
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	return Result{}, errors.New("policy unavailable")
}

func TestEngine_EvaluatorErrorFailsClosed(t *testing.T) {
	e := New(rbac.NewResolver(&memManagers{}), failingEvaluator{}, nil)
	dec, err := e.Decide(context.Background(), Request{Actor: staff, Action: domain.ActionList, Class: resourcedomain.ClassCell})
	if err == nil {
		t.Fatal("Decide should return the evaluator error")
	}
	if dec.Allowed || dec.Reason != ReasonEvaluatorError {
		t.Errorf("Decision = %+v, want deny %q", dec, ReasonEvaluatorError)
	}
}

func TestEngine_MatchedDisjunct(t *testing.T) {
	e, _, _ := newTestEngine(t)
	dec := decide(t, e, Request{Actor: manager, Action: domain.ActionUpdate, Class: resourcedomain.ClassParticipation, Resource: participation(resourcedomain.StatusPending)})
	if dec.Matched != 2 {
		t.Errorf("Matched = %d, want 2 (cell manager disjunct)", dec.Matched)
	}
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	Observers{a, nil, b}.Denied(context.Background(), Request{}, Decision{Reason: ReasonNoRule})
	if len(a.denied) != 1 || len(b.denied) != 1 {
		t.Errorf("denials = %d, %d; want 1, 1", len(a.denied), len(b.denied))
	}
}
