// Package handler serves the account endpoints under /auth.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	auditdomain "volunteer-platform/backend/internal/audit/domain"
	"volunteer-platform/backend/internal/identity/service"
	"volunteer-platform/backend/internal/server/interceptors"
	sessiondomain "volunteer-platform/backend/internal/session/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
	userhandler "volunteer-platform/backend/internal/user/handler"
)

// Accounts is the identity service as seen by the handler.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*userdomain.User, error)
	Activate(ctx context.Context, key string) (*userdomain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, key, newPassword string) error
	ChangePassword(ctx context.Context, userID, current, next string) error
	Login(ctx context.Context, email, password string) (*userdomain.User, *sessiondomain.Session, error)
	Logout(ctx context.Context, userID, key string) error
	Activity(ctx context.Context, userID string, limit, offset int32) ([]*auditdomain.AuditLog, error)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session key; it is the only response that does.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      userhandler.User `json:"user"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Activity is one audit entry of the caller.
type Activity struct {
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler serves /auth.
type Handler struct {
	accounts Accounts
}

// NewHandler returns an account handler.
func NewHandler(accounts Accounts) *Handler {
	return &Handler{accounts: accounts}
}

// Register serves POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	u, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, "register", err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, userhandler.ToJSON(u))
}

// Activate serves POST /auth/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	u, err := h.accounts.Activate(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, "activate", err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, userhandler.ToJSON(u))
}

// Login serves POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil || req.Email == "" || req.Password == "" {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	u, ses, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, "login", err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, LoginResponse{Token: ses.Key, ExpiresAt: ses.ExpiresAt, User: userhandler.ToJSON(u)})
}

// Logout serves POST /auth/logout. It revokes the presented session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := interceptors.GetActor(r.Context())
	key, hasKey := interceptors.GetSessionKey(r.Context())
	if !ok || !hasKey {
		interceptors.Unauthenticated(w)
		return
	}
	if err := h.accounts.Logout(r.Context(), actor.ID, key); err != nil {
		writeServiceError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset serves POST /auth/password-reset. The answer is the same whether or
// not the email belongs to an account.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil || req.Email == "" {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, "password reset", err)
		return
	}
	interceptors.WriteError(w, http.StatusAccepted, "if the account exists, a reset link has been sent")
}

// ConfirmPasswordReset serves POST /auth/password-reset/confirm.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetConfirmRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, "password reset confirm", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword serves POST /auth/password-change.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := interceptors.GetActor(r.Context())
	if !ok {
		interceptors.Unauthenticated(w)
		return
	}
	var req changePasswordRequest
	if err := interceptors.DecodeJSON(w, r, &req); err != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, "password change", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me serves GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := interceptors.GetActor(r.Context())
	if !ok {
		interceptors.Unauthenticated(w)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, userhandler.ToJSON(actor))
}

// MyActivity serves GET /auth/me/activity?limit=&offset=.
func (h *Handler) MyActivity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := interceptors.GetActor(r.Context())
	if !ok {
		interceptors.Unauthenticated(w)
		return
	}
	limit, err1 := queryInt32(r, "limit")
	offset, err2 := queryInt32(r, "offset")
	if err1 != nil || err2 != nil {
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidInput)
		return
	}
	entries, err := h.accounts.Activity(r.Context(), actor.ID, limit, offset)
	if err != nil {
		writeServiceError(w, "activity", err)
		return
	}
	out := make([]Activity, 0, len(entries))
	for _, e := range entries {
		out = append(out, Activity{Action: e.Action, Resource: e.Resource, IP: e.IP, CreatedAt: e.CreatedAt})
	}
	interceptors.WriteJSON(w, http.StatusOK, out)
}

func queryInt32(r *http.Request, name string) (int32, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	return int32(n), err
}

// writeServiceError maps identity errors to responses. Storage and other internal errors are
// logged and answered with 503.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case service.IsValidation(err), errors.Is(err, service.ErrWrongPassword):
		interceptors.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		interceptors.WriteError(w, http.StatusBadRequest, interceptors.MsgInvalidToken)
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		interceptors.WriteError(w, http.StatusConflict, interceptors.MsgEmailAlreadyInUse)
	case errors.Is(err, service.ErrInvalidCredentials):
		interceptors.WriteError(w, http.StatusUnauthorized, interceptors.MsgInvalidCredentials)
	case errors.Is(err, service.ErrUserNotFound):
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
	default:
		log.Printf("identity: %s: %v", op, err)
		interceptors.WriteError(w, http.StatusServiceUnavailable, interceptors.MsgStorageUnavailable)
	}
}
