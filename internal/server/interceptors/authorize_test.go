package interceptors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"volunteer-platform/backend/internal/policy/engine"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

type stubDecider struct {
	dec  engine.Decision
	err  error
	seen engine.Request
}

func (s *stubDecider) Decide(ctx context.Context, req engine.Request) (engine.Decision, error) {
	s.seen = req
	return s.dec, s.err
}

func TestAuthorize(t *testing.T) {
	actor := &userdomain.User{ID: "user-1", IsActive: true}
	testCases := []struct {
		name       string
		actor      *userdomain.User
		dec        engine.Decision
		err        error
		wantOK     bool
		wantStatus int
	}{
		{"allowed", actor, engine.Decision{Allowed: true}, nil, true, http.StatusOK},
		{"denied authenticated", actor, engine.Decision{Reason: engine.ReasonInsufficientRole}, nil, false, http.StatusForbidden},
		{"denied anonymous", nil, engine.Decision{Reason: engine.ReasonInsufficientRole}, nil, false, http.StatusUnauthorized},
		{"evaluator error", actor, engine.Decision{Reason: engine.ReasonEvaluatorError}, errors.New("boom"), false, http.StatusServiceUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := &stubDecider{dec: tc.dec, err: tc.err}
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.actor != nil {
				r = r.WithContext(WithIdentity(r.Context(), tc.actor, "k"))
			}
			w := httptest.NewRecorder()
			_, ok := Authorize(w, r, d, engine.Request{Class: "event", Action: "list"})
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if d.seen.Actor != tc.actor {
				t.Errorf("decider saw actor %v, want %v", d.seen.Actor, tc.actor)
			}
		})
	}
}
