package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/membership/domain"
	"volunteer-platform/backend/internal/platform/rbac"
	"volunteer-platform/backend/internal/policy/engine"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	"volunteer-platform/backend/internal/server/interceptors"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

type memRepo struct {
	mu   sync.Mutex
	sets map[string][]string // cell -> users
}

func (m *memRepo) IsManager(ctx context.Context, cellID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.sets[cellID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ListManagers(ctx context.Context, cellID string) ([]*domain.CellManager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CellManager
	for _, u := range m.sets[cellID] {
		out = append(out, &domain.CellManager{CellID: cellID, UserID: u})
	}
	return out, nil
}

func (m *memRepo) ListCellsManagedBy(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for c, users := range m.sets {
		for _, u := range users {
			if u == userID {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memRepo) Add(ctx context.Context, cm *domain.CellManager) error {
	if ok, _ := m.IsManager(ctx, cm.CellID, cm.UserID); ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[cm.CellID] = append(m.sets[cm.CellID], cm.UserID)
	return nil
}

func (m *memRepo) Remove(ctx context.Context, cellID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := m.sets[cellID]
	for i, u := range users {
		if u == userID {
			m.sets[cellID] = append(users[:i], users[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memResources map[string]*resourcedomain.Resource

func (m memResources) Get(ctx context.Context, class resourcedomain.Class, id string) (*resourcedomain.Resource, error) {
	return m[string(class)+"/"+id], nil
}

type memUsers map[string]*userdomain.User

func (m memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	return m[id], nil
}

var (
	staff   = &userdomain.User{ID: "s1", IsStaff: true, IsActive: true}
	manager = &userdomain.User{ID: "m1", IsActive: true}
	plain   = &userdomain.User{ID: "u1", IsActive: true}
)

func newTestRouter(t *testing.T) (*httprouter.Router, *memRepo, *engine.Engine) {
	t.Helper()
	repo := &memRepo{sets: map[string][]string{"c1": {"m1"}}}
	eng := engine.New(rbac.NewResolver(repo), engine.NewTableEvaluator(engine.DefaultRules()), nil)
	h := NewHandler(repo,
		memResources{"cell/c1": {Class: resourcedomain.ClassCell, ID: "c1", CellID: "c1"}},
		memUsers{"s1": staff, "m1": manager, "u1": plain},
		eng,
		clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
	)
	router := httprouter.New()
	router.GET("/cells/:id/managers", h.List)
	router.PUT("/cells/:id/managers/:user_id", h.Add)
	router.DELETE("/cells/:id/managers/:user_id", h.Remove)
	return router, repo, eng
}

func do(router http.Handler, actor *userdomain.User, method, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	if actor != nil {
		r = r.WithContext(interceptors.WithIdentity(r.Context(), actor, "key"))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestList_Public(t *testing.T) {
	router, _, _ := newTestRouter(t)
	w := do(router, nil, http.MethodGet, "/cells/c1/managers")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var out []Manager
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].UserID != "m1" {
		t.Errorf("managers = %+v, want [m1]", out)
	}
	if w := do(router, nil, http.MethodGet, "/cells/c9/managers"); w.Code != http.StatusNotFound {
		t.Errorf("unknown cell status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAddRemove(t *testing.T) {
	testCases := []struct {
		name   string
		actor  *userdomain.User
		method string
		path   string
		want   int
	}{
		{"staff adds", staff, http.MethodPut, "/cells/c1/managers/u1", http.StatusOK},
		{"staff adds existing", staff, http.MethodPut, "/cells/c1/managers/m1", http.StatusOK},
		{"staff adds unknown user", staff, http.MethodPut, "/cells/c1/managers/nope", http.StatusNotFound},
		{"manager cannot add", manager, http.MethodPut, "/cells/c1/managers/u1", http.StatusForbidden},
		{"anonymous cannot add", nil, http.MethodPut, "/cells/c1/managers/u1", http.StatusUnauthorized},
		{"staff removes", staff, http.MethodDelete, "/cells/c1/managers/m1", http.StatusNoContent},
		{"staff removes non-manager", staff, http.MethodDelete, "/cells/c1/managers/u1", http.StatusNotFound},
		{"plain user cannot remove", plain, http.MethodDelete, "/cells/c1/managers/m1", http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, _, _ := newTestRouter(t)
			if w := do(router, tc.actor, tc.method, tc.path); w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRemove_TakesEffectOnNextDecision(t *testing.T) {
	router, _, eng := newTestRouter(t)
	event := &resourcedomain.Resource{Class: resourcedomain.ClassEvent, ID: "e1", CellID: "c1"}
	req := engine.Request{Actor: manager, Class: resourcedomain.ClassEvent, Action: "update", Resource: event}

	dec, err := eng.Decide(context.Background(), req)
	if err != nil || !dec.Allowed {
		t.Fatalf("manager update before removal = %v, %v; want allowed", dec.Allowed, err)
	}
	if w := do(router, staff, http.MethodDelete, "/cells/c1/managers/m1"); w.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, want %d", w.Code, http.StatusNoContent)
	}
	dec, err = eng.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Allowed {
		t.Error("manager update after removal should be denied")
	}
}
