package domain

import (
	"time"
)

// CellManager links a user to a cell they manage. Managers act on the cell's events and
// participations without being staff.
type CellManager struct {
	CellID    string
	UserID    string
	CreatedAt time.Time
}
