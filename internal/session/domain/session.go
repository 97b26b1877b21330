package domain

import "time"

// Session is a user's bearer credential. A user holds at most one session; Key is the
// opaque value clients present in the Authorization header.
type Session struct {
	Key       string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the session authenticates nothing at now (expires_at <= now).
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
