package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/julienschmidt/httprouter"

	"volunteer-platform/backend/internal/platform/rbac"
	"volunteer-platform/backend/internal/policy/engine"
	"volunteer-platform/backend/internal/server/interceptors"
	"volunteer-platform/backend/internal/user/domain"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*domain.User
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Deactivate(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type noManagers struct{}

func (noManagers) IsManager(ctx context.Context, cellID, userID string) (bool, error) {
	return false, nil
}

func (noManagers) ListCellsManagedBy(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

var (
	alice = &domain.User{ID: "alice", Email: "alice@example.org", PasswordHash: "secret-hash", IsActive: true}
	bob   = &domain.User{ID: "bob", Email: "bob@example.org", IsActive: true}
	staff = &domain.User{ID: "staff", Email: "staff@example.org", IsActive: true, IsStaff: true}
)

func newTestRouter() (*httprouter.Router, *memUsers) {
	users := &memUsers{byID: map[string]*domain.User{}}
	for _, u := range []*domain.User{alice, bob, staff} {
		cp := *u
		users.byID[u.ID] = &cp
	}
	eng := engine.New(rbac.NewResolver(noManagers{}), engine.NewTableEvaluator(engine.DefaultRules()), nil)
	h := NewHandler(users, users, eng)
	router := httprouter.New()
	router.GET("/users/:id", h.Retrieve)
	router.DELETE("/users/:id", h.Deactivate)
	return router, users
}

func do(router http.Handler, actor *domain.User, method, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	if actor != nil {
		r = r.WithContext(interceptors.WithIdentity(r.Context(), actor, "key"))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRetrieve(t *testing.T) {
	router, _ := newTestRouter()
	testCases := []struct {
		name  string
		actor *domain.User
		path  string
		want  int
	}{
		{"self", alice, "/users/alice", http.StatusOK},
		{"staff", staff, "/users/alice", http.StatusOK},
		{"other user", bob, "/users/alice", http.StatusForbidden},
		{"anonymous", nil, "/users/alice", http.StatusUnauthorized},
		{"missing", staff, "/users/nobody", http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(router, tc.actor, http.MethodGet, tc.path); w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRetrieve_OmitsPasswordHash(t *testing.T) {
	router, _ := newTestRouter()
	w := do(router, alice, http.MethodGet, "/users/alice")
	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Errorf("body leaks password hash: %s", w.Body.String())
	}
	var u User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Email != "alice@example.org" {
		t.Errorf("Email = %q, want %q", u.Email, "alice@example.org")
	}
}

func TestDeactivate(t *testing.T) {
	testCases := []struct {
		name   string
		actor  *domain.User
		path   string
		want   int
		target string
	}{
		{"self", alice, "/users/alice", http.StatusNoContent, "alice"},
		{"staff", staff, "/users/bob", http.StatusNoContent, "bob"},
		{"other user", bob, "/users/alice", http.StatusForbidden, "alice"},
		{"anonymous", nil, "/users/alice", http.StatusUnauthorized, "alice"},
		{"missing", staff, "/users/nobody", http.StatusNotFound, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, users := newTestRouter()
			w := do(router, tc.actor, http.MethodDelete, tc.path)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.target == "" {
				return
			}
			u, _ := users.GetByID(context.Background(), tc.target)
			if u == nil {
				t.Fatal("user must never be removed")
			}
			if wantActive := tc.want != http.StatusNoContent; u.IsActive != wantActive {
				t.Errorf("IsActive = %v, want %v", u.IsActive, wantActive)
			}
		})
	}
}
