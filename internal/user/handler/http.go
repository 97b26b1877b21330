// Package handler serves user accounts over HTTP.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	policydomain "volunteer-platform/backend/internal/policy/domain"
	"volunteer-platform/backend/internal/policy/engine"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	"volunteer-platform/backend/internal/server/interceptors"
	"volunteer-platform/backend/internal/user/domain"
)

// User is the JSON representation of an account. The password hash never leaves the server.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsStaff   bool      `json:"is_staff"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToJSON converts u for a response body.
func ToJSON(u *domain.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Lookup loads users by id.
type Lookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Deactivator turns an account off, returning domain.ErrNotFound for an unknown id.
type Deactivator interface {
	Deactivate(ctx context.Context, userID string) error
}

// Handler serves /users/:id.
type Handler struct {
	users       Lookup
	deactivator Deactivator
	decider     interceptors.Decider
}

// NewHandler returns a user handler.
func NewHandler(users Lookup, deactivator Deactivator, decider interceptors.Decider) *Handler {
	return &Handler{users: users, deactivator: deactivator, decider: decider}
}

// Retrieve serves GET /users/:id.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	u, ok := h.load(w, r, ps.ByName("id"), policydomain.ActionRetrieve)
	if !ok {
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, ToJSON(u))
}

// Deactivate serves DELETE /users/:id. The account is marked inactive, never removed.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	u, ok := h.load(w, r, ps.ByName("id"), policydomain.ActionDestroy)
	if !ok {
		return
	}
	if err := h.deactivator.Deactivate(r.Context(), u.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
			return
		}
		log.Printf("user: deactivate %s: %v", u.ID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, id string, action policydomain.Action) (*domain.User, bool) {
	if _, authed := interceptors.GetActor(r.Context()); !authed {
		interceptors.Unauthenticated(w)
		return nil, false
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("user: get %s: %v", id, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return nil, false
	}
	if u == nil {
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
		return nil, false
	}
	res := &resourcedomain.Resource{Class: resourcedomain.ClassUser, ID: u.ID, OwnerID: u.ID}
	if _, ok := interceptors.Authorize(w, r, h.decider, engine.Request{
		Class:    resourcedomain.ClassUser,
		Action:   action,
		Resource: res,
	}); !ok {
		return nil, false
	}
	return u, true
}
