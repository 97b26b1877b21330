// Package domain describes the slice of every business entity that authorization inspects:
// its class, owner, governing cell and workflow status.
package domain

// Class is a resource type with its own rule set.
type Class string

const (
	ClassUser          Class = "user"
	ClassPosition      Class = "position"
	ClassApplication   Class = "application"
	ClassCell          Class = "cell"
	ClassEvent         Class = "event"
	ClassParticipation Class = "participation"
	ClassPage          Class = "page"
	ClassDonation      Class = "donation"
)

// Classes lists every known class.
var Classes = []Class{
	ClassUser, ClassPosition, ClassApplication, ClassCell,
	ClassEvent, ClassParticipation, ClassPage, ClassDonation,
}

// Status is the review state of applications and participations.
// Pending moves to Accepted or Declined, both terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusDeclined
}

// Resource is a persisted (or proposed) instance. OwnerID is the owning user: the
// participant or applicant, the donor, or the user itself for ClassUser. CellID is the cell
// the resource is scoped to, directly (event, cell) or through its event (participation).
type Resource struct {
	Class   Class
	ID      string
	OwnerID string
	CellID  string
	Status  Status
}
