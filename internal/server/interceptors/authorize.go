package interceptors

import (
	"context"
	"log"
	"net/http"

	"volunteer-platform/backend/internal/policy/engine"
)

// Decider is the authorization engine as seen by handlers.
type Decider interface {
	Decide(ctx context.Context, req engine.Request) (engine.Decision, error)
}

// Authorize asks decider whether the request's actor may perform req and writes the denial
// response when not: 401 for anonymous callers, 403 for authenticated ones, 503 when the
// decision could not be made. req.Actor is taken from the context. The boolean reports
// whether the handler may proceed.
func Authorize(w http.ResponseWriter, r *http.Request, decider Decider, req engine.Request) (engine.Decision, bool) {
	actor, _ := GetActor(r.Context())
	req.Actor = actor
	dec, err := decider.Decide(r.Context(), req)
	if err != nil {
		log.Printf("authz: decide %s %s: %v", req.Class, req.Action, err)
		WriteError(w, http.StatusServiceUnavailable, MsgStorageUnavailable)
		return dec, false
	}
	if !dec.Allowed {
		if actor == nil {
			Unauthenticated(w)
		} else {
			WriteError(w, http.StatusForbidden, MsgNotPermitted)
		}
		return dec, false
	}
	return dec, true
}
