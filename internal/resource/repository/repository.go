package repository

import (
	"context"

	"volunteer-platform/backend/internal/resource/domain"
)

// Repository resolves the authorization-relevant fields of a resource instance.
type Repository interface {
	// Get returns the resource of class with id, or (nil, nil) if it does not exist.
	Get(ctx context.Context, class domain.Class, id string) (*domain.Resource, error)
}
