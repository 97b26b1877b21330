package repository

import (
	"context"

	"volunteer-platform/backend/internal/membership/domain"
)

// Repository defines persistence for cell manager sets.
type Repository interface {
	IsManager(ctx context.Context, cellID, userID string) (bool, error)
	ListManagers(ctx context.Context, cellID string) ([]*domain.CellManager, error)
	ListCellsManagedBy(ctx context.Context, userID string) ([]string, error)
	// Add is idempotent.
	Add(ctx context.Context, m *domain.CellManager) error
	// Remove reports whether a row was deleted.
	Remove(ctx context.Context, cellID, userID string) (bool, error)
}
