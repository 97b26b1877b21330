package interceptors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
)

const maxBodyBytes = 1 << 20

// Fixed response messages. Internal error text never reaches a client.
const (
	MsgInvalidInput       = "invalid input"
	MsgNotAuthenticated   = "authentication credentials were not provided or are invalid"
	MsgNotPermitted       = "you do not have permission to perform this action"
	MsgNotFound           = "not found"
	MsgStorageUnavailable = "service temporarily unavailable"
	MsgRateLimited        = "rate limit exceeded"
	MsgInvalidToken       = "invalid or expired token"
	MsgInvalidCredentials = "unable to log in with provided credentials"
	MsgEmailAlreadyInUse  = "a user with that email already exists"
	MsgAlreadyExists      = "already exists"
	MsgMethodNotAllowed   = "method not allowed"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

// WriteError writes {"detail": msg} with status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Detail: msg})
}

// DecodeJSON reads a JSON body into v, rejecting unknown fields and bodies over 1 MiB.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: trailing data")
	}
	return nil
}
