package rbac

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	policydomain "volunteer-platform/backend/internal/policy/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// mockManagers implements CellManagerLookup for tests.
type mockManagers struct {
	mu    sync.Mutex
	cells map[string]map[string]bool
	err   error
}

func (m *mockManagers) IsManager(ctx context.Context, cellID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.cells[cellID][userID], nil
}

func (m *mockManagers) ListCellsManagedBy(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for cell, users := range m.cells {
		if users[userID] {
			out = append(out, cell)
		}
	}
	return out, nil
}

func TestResolve(t *testing.T) {
	managers := &mockManagers{cells: map[string]map[string]bool{"c1": {"m": true}}}
	r := NewResolver(managers)
	ctx := context.Background()

	active := &userdomain.User{ID: "u", IsActive: true}
	staff := &userdomain.User{ID: "s", IsActive: true, IsStaff: true}
	manager := &userdomain.User{ID: "m", IsActive: true}
	inactiveStaff := &userdomain.User{ID: "x", IsActive: false, IsStaff: true}
	owned := &resourcedomain.Resource{Class: resourcedomain.ClassParticipation, ID: "p1", OwnerID: "u", CellID: "c1"}

	testCases := []struct {
		name  string
		actor *userdomain.User
		res   *resourcedomain.Resource
		want  []string
	}{
		{"anonymous", nil, owned, []string{"anonymous"}},
		{"inactive staff is anonymous", inactiveStaff, owned, []string{"anonymous"}},
		{"authenticated without resource", active, nil, []string{"authenticated"}},
		{"owner", active, owned, []string{"authenticated", "owner"}},
		{"staff not owner", staff, owned, []string{"authenticated", "staff"}},
		{"cell manager", manager, owned, []string{"authenticated", "cell_manager"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			roles, err := r.Resolve(ctx, tc.actor, tc.res)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got := roles.Names(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("roles = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolve_UserResourceOwnership(t *testing.T) {
	r := NewResolver(&mockManagers{})
	u := &userdomain.User{ID: "u", IsActive: true}
	self := &resourcedomain.Resource{Class: resourcedomain.ClassUser, ID: "u", OwnerID: "u"}
	roles, err := r.Resolve(context.Background(), u, self)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !roles.Has(policydomain.RoleOwner) {
		t.Error("a user owns its own user resource")
	}
}

func TestResolve_ManagerRemovalTakesEffect(t *testing.T) {
	managers := &mockManagers{cells: map[string]map[string]bool{"c1": {"m": true}}}
	r := NewResolver(managers)
	m := &userdomain.User{ID: "m", IsActive: true}
	res := &resourcedomain.Resource{CellID: "c1"}

	roles, _ := r.Resolve(context.Background(), m, res)
	if !roles.Has(policydomain.RoleCellManager) {
		t.Fatal("manager should hold cell_manager")
	}
	managers.mu.Lock()
	delete(managers.cells["c1"], "m")
	managers.mu.Unlock()
	roles, _ = r.Resolve(context.Background(), m, res)
	if roles.Has(policydomain.RoleCellManager) {
		t.Error("removed manager must lose cell_manager on the next call")
	}
}

func TestResolve_LookupError(t *testing.T) {
	r := NewResolver(&mockManagers{err: errors.New("db down")})
	u := &userdomain.User{ID: "u", IsActive: true}
	if _, err := r.Resolve(context.Background(), u, &resourcedomain.Resource{CellID: "c1"}); err == nil {
		t.Fatal("Resolve should surface lookup errors")
	}
}

func TestManagedCells(t *testing.T) {
	r := NewResolver(&mockManagers{cells: map[string]map[string]bool{"c1": {"m": true}, "c2": {"z": true}}})
	cells, err := r.ManagedCells(context.Background(), &userdomain.User{ID: "m", IsActive: true})
	if err != nil {
		t.Fatalf("ManagedCells: %v", err)
	}
	if !reflect.DeepEqual(cells, []string{"c1"}) {
		t.Errorf("ManagedCells = %v, want [c1]", cells)
	}
	if cells, _ := r.ManagedCells(context.Background(), nil); cells != nil {
		t.Errorf("ManagedCells(nil) = %v, want nil", cells)
	}
}
