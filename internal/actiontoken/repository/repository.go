package repository

import (
	"context"
	"time"

	"volunteer-platform/backend/internal/actiontoken/domain"
)

// Repository defines persistence for action tokens. Rows are keyed by the SHA-256 hash of
// the token key; the plain key is never stored.
type Repository interface {
	Create(ctx context.Context, t *domain.Token) error
	// GetByKeyHash returns the token with the given hash and purpose, or (nil, nil). Expired rows are returned.
	GetByKeyHash(ctx context.Context, keyHash string, purpose domain.Purpose) (*domain.Token, error)
	// ReplaceActive sets expires_at = now on every non-expired token of (t.UserID, t.Purpose) and
	// inserts t, as one atomic unit.
	ReplaceActive(ctx context.Context, t *domain.Token, now time.Time) error
	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, keyHash string) error
	// Claim deletes the row matching keyHash and purpose if it expires after now and returns it.
	// It returns (nil, nil) when no live row matched, so of two concurrent claims only one gets the token.
	Claim(ctx context.Context, keyHash string, purpose domain.Purpose, now time.Time) (*domain.Token, error)
	// DeleteByUser removes every token of userID regardless of purpose or expiry.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	SetExpiry(ctx context.Context, keyHash string, expiresAt time.Time) error
	// DeleteExpired removes rows with expires_at <= before and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
