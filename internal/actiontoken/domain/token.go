package domain

import (
	"fmt"
	"time"
)

// Purpose names the single operation an action token authorizes.
type Purpose string

const (
	PurposeAccountActivation Purpose = "account_activation"
	PurposePasswordChange    Purpose = "password_change"
)

// ParsePurpose validates s as a known Purpose.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeAccountActivation, PurposePasswordChange:
		return p, nil
	}
	return "", fmt.Errorf("unknown token purpose %q", s)
}

// Token is a single-use, expiring credential owned by one user. Key holds the plain
// key only on the value returned at issuance; persisted rows carry KeyHash.
type Token struct {
	Key       string
	KeyHash   string
	Purpose   Purpose
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the token is inert at now (expires_at <= now). Once true it stays
// true for every later now.
func (t *Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
