// Package handler serves the dev-only outbox (GET /dev/outbox).
package handler

import (
	"context"
	"net/http"

	"volunteer-platform/backend/internal/notify"
	"volunteer-platform/backend/internal/server/interceptors"
)

const devOutboxNote = "DEV MODE ONLY"

// Reader returns the last message sent to an email.
type Reader interface {
	Get(ctx context.Context, email string) (notify.Message, bool)
}

// Handler serves GET /dev/outbox?email=. Only registered when DEV_OUTBOX is enabled and not production.
type Handler struct {
	outbox Reader
}

// NewHandler returns a Handler that reads from outbox.
func NewHandler(outbox Reader) *Handler {
	return &Handler{outbox: outbox}
}

type outboxResponse struct {
	notify.Message
	Note string `json:"note"`
}

// ServeHTTP returns 400 without email and 404 when nothing is held for it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		interceptors.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}
	msg, ok := h.outbox.Get(r.Context(), email)
	if !ok {
		interceptors.WriteError(w, http.StatusNotFound, "message not found or expired")
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, outboxResponse{Message: msg, Note: devOutboxNote})
}
