// Package handler serves a cell's manager set. Changes apply to the next authorization decision.
package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/membership/domain"
	"volunteer-platform/backend/internal/membership/repository"
	policydomain "volunteer-platform/backend/internal/policy/domain"
	"volunteer-platform/backend/internal/policy/engine"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	resourcerepo "volunteer-platform/backend/internal/resource/repository"
	"volunteer-platform/backend/internal/server/interceptors"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// UserLookup resolves the user being added as a manager.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Manager is the JSON representation of a cell manager.
type Manager struct {
	CellID string `json:"cell_id"`
	UserID string `json:"user_id"`
}

// Handler serves /cells/:id/managers.
type Handler struct {
	repo      repository.Repository
	resources resourcerepo.Repository
	users     UserLookup
	decider   interceptors.Decider
	clk       clock.Clock
}

// NewHandler returns a cell manager handler.
func NewHandler(repo repository.Repository, resources resourcerepo.Repository, users UserLookup, decider interceptors.Decider, clk clock.Clock) *Handler {
	return &Handler{repo: repo, resources: resources, users: users, decider: decider, clk: clk}
}

// List serves GET /cells/:id/managers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cell, ok := h.authorizeCell(w, r, ps.ByName("id"), policydomain.ActionRetrieve)
	if !ok {
		return
	}
	managers, err := h.repo.ListManagers(r.Context(), cell.ID)
	if err != nil {
		log.Printf("membership: list managers of %s: %v", cell.ID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	out := make([]Manager, 0, len(managers))
	for _, m := range managers {
		out = append(out, Manager{CellID: m.CellID, UserID: m.UserID})
	}
	interceptors.WriteJSON(w, http.StatusOK, out)
}

// Add serves PUT /cells/:id/managers/:user_id. Adding an existing manager succeeds.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cell, ok := h.authorizeCell(w, r, ps.ByName("id"), policydomain.ActionUpdate)
	if !ok {
		return
	}
	userID := ps.ByName("user_id")
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		log.Printf("membership: get user %s: %v", userID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	if u == nil {
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
		return
	}
	m := &domain.CellManager{CellID: cell.ID, UserID: u.ID, CreatedAt: h.clk.Now()}
	if err := h.repo.Add(r.Context(), m); err != nil {
		log.Printf("membership: add %s to %s: %v", u.ID, cell.ID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, Manager{CellID: m.CellID, UserID: m.UserID})
}

// Remove serves DELETE /cells/:id/managers/:user_id.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	cell, ok := h.authorizeCell(w, r, ps.ByName("id"), policydomain.ActionUpdate)
	if !ok {
		return
	}
	removed, err := h.repo.Remove(r.Context(), cell.ID, ps.ByName("user_id"))
	if err != nil {
		log.Printf("membership: remove from %s: %v", cell.ID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	if !removed {
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorizeCell(w http.ResponseWriter, r *http.Request, id string, action policydomain.Action) (*resourcedomain.Resource, bool) {
	cell, err := h.resources.Get(r.Context(), resourcedomain.ClassCell, id)
	if err != nil {
		log.Printf("membership: get cell %s: %v", id, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return nil, false
	}
	if cell == nil {
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
		return nil, false
	}
	if _, ok := interceptors.Authorize(w, r, h.decider, engine.Request{
		Class:    resourcedomain.ClassCell,
		Action:   action,
		Resource: cell,
	}); !ok {
		return nil, false
	}
	return cell, true
}
