package interceptors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sessiondomain "volunteer-platform/backend/internal/session/domain"
	sessionservice "volunteer-platform/backend/internal/session/service"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

type fakeResolver struct {
	sessions map[string]*userdomain.User
	errs     map[string]error
	calls    int
}

func (f *fakeResolver) Resolve(ctx context.Context, key string) (*userdomain.User, *sessiondomain.Session, error) {
	f.calls++
	if err, ok := f.errs[key]; ok {
		return nil, nil, err
	}
	u, ok := f.sessions[key]
	if !ok {
		return nil, nil, sessionservice.ErrNotFound
	}
	return u, &sessiondomain.Session{Key: key, UserID: u.ID}, nil
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		sessions: map[string]*userdomain.User{"good": {ID: "user-1", IsActive: true}},
		errs: map[string]error{
			"expired":  sessionservice.ErrExpired,
			"inactive": sessionservice.ErrInactiveUser,
			"down":     fmt.Errorf("%w: connection refused", sessionservice.ErrStorageUnavailable),
		},
	}
}

// echoActor writes the actor id, or "anonymous".
var echoActor = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id, ok := GetUserID(r.Context()); ok {
		_, _ = w.Write([]byte(id))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func TestAuth(t *testing.T) {
	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusOK, "anonymous"},
		{"token scheme", "Token good", http.StatusOK, "user-1"},
		{"bearer scheme", "Bearer good", http.StatusOK, "user-1"},
		{"lowercase scheme", "token good", http.StatusOK, "user-1"},
		{"other scheme ignored", "Basic dXNlcjpwdw==", http.StatusOK, "anonymous"},
		{"empty key", "Token", http.StatusUnauthorized, ""},
		{"key with space", "Token a b", http.StatusUnauthorized, ""},
		{"unknown key", "Token nope", http.StatusUnauthorized, ""},
		{"expired", "Token expired", http.StatusUnauthorized, ""},
		{"inactive user", "Token inactive", http.StatusUnauthorized, ""},
		{"store unavailable", "Token down", http.StatusServiceUnavailable, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := Auth(newFakeResolver())(echoActor)
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && w.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestAuth_RejectionsShareOneBody(t *testing.T) {
	bodies := map[string]bool{}
	for _, key := range []string{"nope", "expired", "inactive"} {
		h := Auth(newFakeResolver())(echoActor)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Token "+key)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		bodies[w.Body.String()] = true
		if w.Header().Get("WWW-Authenticate") != "Token" {
			t.Errorf("%s: WWW-Authenticate = %q", key, w.Header().Get("WWW-Authenticate"))
		}
	}
	if len(bodies) != 1 {
		t.Errorf("rejection bodies differ: %v", bodies)
	}
}

func TestAuth_SessionKeyInContext(t *testing.T) {
	var key string
	h := Auth(newFakeResolver())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ = GetSessionKey(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if key != "good" {
		t.Errorf("session key = %q, want %q", key, "good")
	}
}

func TestRequireAuth(t *testing.T) {
	h := Auth(newFakeResolver())(RequireAuth(echoActor))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Token good")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK || w.Body.String() != "user-1" {
		t.Errorf("authenticated = %d %q, want 200 user-1", w.Code, w.Body.String())
	}
}
