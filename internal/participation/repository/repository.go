package repository

import (
	"context"
	"errors"

	"volunteer-platform/backend/internal/participation/domain"
)

// ErrDuplicate is returned by Create when the user already participates in the event.
var ErrDuplicate = errors.New("participation already exists")

// ListFilter narrows List. Unrestricted returns every row; otherwise rows owned by OwnerID
// or belonging to an event in one of CellIDs.
type ListFilter struct {
	Unrestricted bool
	OwnerID      string
	CellIDs      []string
}

// Repository defines persistence for participations. Get returns (nil, nil) when no row matches.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Participation, error)
	List(ctx context.Context, f ListFilter) ([]*domain.Participation, error)
	Create(ctx context.Context, p *domain.Participation) error
	// Update persists Status and IsPresent.
	Update(ctx context.Context, p *domain.Participation) error
	// Delete reports whether a row was deleted.
	Delete(ctx context.Context, id string) (bool, error)
}
