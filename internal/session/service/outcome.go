package service

import "errors"

// Outcome is the result of presenting a session credential, as consumed by the transport layer.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedInvalidToken
	RejectedExpired
	RejectedInactiveUser
	// RejectedUnavailable means the store could not be reached; not a verdict on the credential.
	RejectedUnavailable
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedInvalidToken:
		return "invalid_token"
	case RejectedExpired:
		return "expired"
	case RejectedInactiveUser:
		return "inactive_user"
	case RejectedUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// OutcomeOf classifies an error returned by Resolve or Authenticate.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Accepted
	case errors.Is(err, ErrExpired):
		return RejectedExpired
	case errors.Is(err, ErrInactiveUser):
		return RejectedInactiveUser
	case errors.Is(err, ErrStorageUnavailable):
		return RejectedUnavailable
	}
	return RejectedInvalidToken
}
