package repository

import (
	"context"
	"errors"

	"volunteer-platform/backend/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create when another account already uses the email.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines persistence for users. Get methods return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	// SetActive flips is_active. Returns false when no row was updated.
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
}
