package domain

import (
	"errors"
	"time"

	resourcedomain "volunteer-platform/backend/internal/resource/domain"
)

// Participation is a user's sign-up for an event. CellID is the event's cell and is read-only here.
type Participation struct {
	ID        string
	EventID   string
	UserID    string
	CellID    string
	Status    resourcedomain.Status
	IsPresent bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the participation for persistence.
func (p *Participation) Validate() error {
	if p.ID == "" {
		return errors.New("participation id is required")
	}
	if p.EventID == "" {
		return errors.New("event id is required")
	}
	if p.UserID == "" {
		return errors.New("user id is required")
	}
	if !p.Status.Valid() {
		return errors.New("invalid participation status")
	}
	return nil
}

// Resource returns the authorization view of p.
func (p *Participation) Resource() *resourcedomain.Resource {
	return &resourcedomain.Resource{
		Class:   resourcedomain.ClassParticipation,
		ID:      p.ID,
		OwnerID: p.UserID,
		CellID:  p.CellID,
		Status:  p.Status,
	}
}
