// Package handler serves the participation endpoints. Every request is decided by the
// authorization engine; list results are narrowed by the decision's row filter.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/participation/domain"
	"volunteer-platform/backend/internal/participation/repository"
	policydomain "volunteer-platform/backend/internal/policy/domain"
	"volunteer-platform/backend/internal/policy/engine"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	resourcerepo "volunteer-platform/backend/internal/resource/repository"
	"volunteer-platform/backend/internal/server/interceptors"
)

var errTerminalStatus = errors.New("status can no longer change")

// Participation is the JSON representation of a participation.
type Participation struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	IsPresent bool   `json:"is_present"`
}

func toJSON(p *domain.Participation) Participation {
	return Participation{ID: p.ID, EventID: p.EventID, UserID: p.UserID, Status: string(p.Status), IsPresent: p.IsPresent}
}

type createRequest struct {
	EventID string `json:"event_id"`
	// UserID defaults to the caller.
	UserID string `json:"user_id"`
}

type updateRequest struct {
	Status    *string `json:"status"`
	IsPresent *bool   `json:"is_present"`
}

// Handler serves /participations.
type Handler struct {
	repo      repository.Repository
	resources resourcerepo.Repository
	decider   interceptors.Decider
	clk       clock.Clock
}

// NewHandler returns a participation handler. resources resolves events on create.
func NewHandler(repo repository.Repository, resources resourcerepo.Repository, decider interceptors.Decider, clk clock.Clock) *Handler {
	return &Handler{repo: repo, resources: resources, decider: decider, clk: clk}
}

// List serves GET /participations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dec, ok := interceptors.Authorize(w, r, h.decider, engine.Request{
		Class:  resourcedomain.ClassParticipation,
		Action: policydomain.ActionList,
	})
	if !ok {
		return
	}
	f := repository.ListFilter{Unrestricted: true}
	if dec.Filter != nil && !dec.Filter.Unrestricted {
		f = repository.ListFilter{OwnerID: dec.Filter.OwnerID, CellIDs: dec.Filter.ManagedCellIDs}
	}
	list, err := h.repo.List(r.Context(), f)
	if err != nil {
		log.Printf("participation: list: %v", err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	out := make([]Participation, 0, len(list))
	for _, p := range list {
		out = append(out, toJSON(p))
	}
	interceptors.WriteJSON(w, http.StatusOK, out)
}

// Retrieve serves GET /participations/:id.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _, ok := h.load(w, r, ps.ByName("id"), policydomain.ActionRetrieve)
	if !ok {
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, toJSON(p))
}

// Create serves POST /participations. Participations start pending.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil || req.EventID == "" {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	if req.UserID == "" {
		req.UserID, _ = interceptors.GetUserID(r.Context())
	}
	event, err := h.resources.Get(r.Context(), resourcedomain.ClassEvent, req.EventID)
	if err != nil {
		log.Printf("participation: load event %s: %v", req.EventID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	proposed := &resourcedomain.Resource{
		Class:   resourcedomain.ClassParticipation,
		OwnerID: req.UserID,
		Status:  resourcedomain.StatusPending,
	}
	if event != nil {
		proposed.CellID = event.CellID
	}
	if _, ok := interceptors.Authorize(w, r, h.decider, engine.Request{
		Class:    resourcedomain.ClassParticipation,
		Action:   policydomain.ActionCreate,
		Proposed: proposed,
	}); !ok {
		return
	}
	if event == nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}

	now := h.clk.Now()
	p := &domain.Participation{
		ID:        uuid.New().String(),
		EventID:   req.EventID,
		UserID:    req.UserID,
		CellID:    event.CellID,
		Status:    resourcedomain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			interceptors.WriteError(w, http.StatusConflict, interceptors.MsgAlreadyExists)
			return
		}
		log.Printf("participation: create: %v", err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, toJSON(p))
}

// Update serves PATCH /participations/:id. A decided status (accepted or declined) is final.
// Status and presence are moderated fields: only Staff and cell managers may change them, so an
// owner allowed in by the pending-owner rule cannot accept their own participation.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req updateRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	p, dec, ok := h.load(w, r, ps.ByName("id"), policydomain.ActionUpdate)
	if !ok {
		return
	}
	statusChange := req.Status != nil && resourcedomain.Status(*req.Status) != p.Status
	presenceChange := req.IsPresent != nil && *req.IsPresent != p.IsPresent
	if (statusChange || presenceChange) && !canModerate(dec) {
		interceptors.WriteError(w, http.StatusForbidden, interceptors.MsgNotPermitted)
		return
	}
	if req.Status != nil {
		if err := transition(p, resourcedomain.Status(*req.Status)); err != nil {
			interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
			return
		}
	}
	if req.IsPresent != nil {
		p.IsPresent = *req.IsPresent
	}
	p.UpdatedAt = h.clk.Now()
	if err := h.repo.Update(r.Context(), p); err != nil {
		log.Printf("participation: update %s: %v", p.ID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, toJSON(p))
}

// Delete serves DELETE /participations/:id.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, _, ok := h.load(w, r, ps.ByName("id"), policydomain.ActionDestroy)
	if !ok {
		return
	}
	if _, err := h.repo.Delete(r.Context(), p.ID); err != nil {
		log.Printf("participation: delete %s: %v", p.ID, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the participation and authorizes action on it. A missing row is 404 for
// authenticated callers and 401 for anonymous ones, so existence does not leak.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, id string, action policydomain.Action) (*domain.Participation, engine.Decision, bool) {
	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		log.Printf("participation: get %s: %v", id, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
		return nil, engine.Decision{}, false
	}
	if p == nil {
		if _, authed := interceptors.GetActor(r.Context()); !authed {
			interceptors.Unauthenticated(w)
			return nil, engine.Decision{}, false
		}
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
		return nil, engine.Decision{}, false
	}
	dec, ok := interceptors.Authorize(w, r, h.decider, engine.Request{
		Class:    resourcedomain.ClassParticipation,
		Action:   action,
		Resource: p.Resource(),
	})
	if !ok {
		return nil, engine.Decision{}, false
	}
	return p, dec, true
}

func canModerate(dec engine.Decision) bool {
	return dec.Roles.Has(policydomain.RoleStaff) || dec.Roles.Has(policydomain.RoleCellManager)
}

func transition(p *domain.Participation, next resourcedomain.Status) error {
	if !next.Valid() {
		return errors.New("invalid status")
	}
	if next == p.Status {
		return nil
	}
	if p.Status != resourcedomain.StatusPending {
		return errTerminalStatus
	}
	p.Status = next
	return nil
}
