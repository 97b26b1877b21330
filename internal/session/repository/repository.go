package repository

import (
	"context"
	"time"

	"volunteer-platform/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Get methods return (nil, nil) when nothing matches,
// including sessions that are expired but not yet purged.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*domain.Session, error)
	GetByUser(ctx context.Context, userID string) (*domain.Session, error)
	// Replace installs s as the session of s.UserID unless that user already has a session
	// unexpired at now; then the existing session is returned unchanged. The check and the
	// write are one atomic step.
	Replace(ctx context.Context, s *domain.Session, now time.Time) (*domain.Session, error)
	UpdateExpiry(ctx context.Context, key string, expiresAt time.Time) error
	// Delete removes the session; a missing key is not an error.
	Delete(ctx context.Context, key string) error
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes sessions with expires_at <= before and reports how many.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
