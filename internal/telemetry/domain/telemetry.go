package domain

import "time"

// Security event types. Not-found and expired stay distinct here even though callers
// never learn which one occurred.
const (
	EventTokenNotFound      = "token_not_found"
	EventTokenExpired       = "token_expired"
	EventInactiveUser       = "inactive_user"
	EventInvalidCredentials = "invalid_credentials"
	EventAuthzDenied        = "authz_denied"
)

// Event is one security telemetry event. UserID is empty when the caller is unknown.
type Event struct {
	UserID    string
	EventType string
	Source    string
	Metadata  []byte // JSON
	CreatedAt time.Time
}
