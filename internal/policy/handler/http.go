// Package handler lets clients ask what the caller may do, so UIs can hide forbidden actions.
package handler

import (
	"log"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"volunteer-platform/backend/internal/policy/domain"
	"volunteer-platform/backend/internal/policy/engine"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	resourcerepo "volunteer-platform/backend/internal/resource/repository"
	"volunteer-platform/backend/internal/server/interceptors"
)

// Permission answers GET /permissions.
type Permission struct {
	Class   string   `json:"class"`
	Action  string   `json:"action"`
	ID      string   `json:"id,omitempty"`
	Allowed bool     `json:"allowed"`
	Roles   []string `json:"roles"`
}

// Handler serves /permissions.
type Handler struct {
	resources resourcerepo.Repository
	decider   interceptors.Decider
}

// NewHandler returns a permissions handler.
func NewHandler(resources resourcerepo.Repository, decider interceptors.Decider) *Handler {
	return &Handler{resources: resources, decider: decider}
}

// Check serves GET /permissions?class=&action=[&id=]. It reports the decision instead of
// enforcing it; a denial is 200 with allowed=false. id is required for retrieve, update and
// destroy; an unknown id is 404.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	class := resourcedomain.Class(q.Get("class"))
	action := domain.Action(q.Get("action"))
	id := q.Get("id")
	if !knownClass(class) || !knownAction(action) {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	instance := action == domain.ActionRetrieve || action == domain.ActionUpdate || action == domain.ActionDestroy
	if instance != (id != "") {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}

	actor, _ := interceptors.GetActor(r.Context())
	req := engine.Request{Actor: actor, Class: class, Action: action}
	if instance {
		res, err := h.resources.Get(r.Context(), class, id)
		if err != nil {
			log.Printf("policy: load %s %s: %v", class, id, err)
			interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
			return
		}
		if res == nil {
			interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
			return
		}
		req.Resource = res
	}
	if action == domain.ActionCreate && actor != nil {
		req.Proposed = &resourcedomain.Resource{Class: class, OwnerID: actor.ID}
	}

	dec, err := h.decider.Decide(r.Context(), req)
	if err != nil {
		log.Printf("policy: decide %s %s: %v", class, action, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, Permission{
		Class:   string(class),
		Action:  string(action),
		ID:      id,
		Allowed: dec.Allowed,
		Roles:   dec.Roles.Names(),
	})
}

func knownClass(c resourcedomain.Class) bool {
	for _, k := range resourcedomain.Classes {
		if k == c {
			return true
		}
	}
	return false
}

func knownAction(a domain.Action) bool {
	for _, k := range domain.Actions {
		if k == a {
			return true
		}
	}
	return false
}
