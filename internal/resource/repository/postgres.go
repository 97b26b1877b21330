package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"volunteer-platform/backend/internal/resource/domain"
)

// lookups select (owner_id, cell_id, status) for each class; missing columns are ''.
var lookups = map[domain.Class]string{
	domain.ClassUser:          `SELECT id, '', '' FROM users WHERE id = $1`,
	domain.ClassPosition:      `SELECT '', '', '' FROM positions WHERE id = $1`,
	domain.ClassApplication:   `SELECT user_id, '', status FROM applications WHERE id = $1`,
	domain.ClassCell:          `SELECT '', id, '' FROM cells WHERE id = $1`,
	domain.ClassEvent:         `SELECT '', COALESCE(cell_id, ''), '' FROM events WHERE id = $1`,
	domain.ClassParticipation: `SELECT p.user_id, COALESCE(e.cell_id, ''), p.status FROM participations p JOIN events e ON e.id = p.event_id WHERE p.id = $1`,
	domain.ClassPage:          `SELECT '', '', '' FROM pages WHERE id = $1`,
	domain.ClassDonation:      `SELECT COALESCE(user_id, ''), '', '' FROM donations WHERE id = $1`,
}

// PostgresRepository reads resource scope from the entity tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a resource repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the resource, or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, class domain.Class, id string) (*domain.Resource, error) {
	q, ok := lookups[class]
	if !ok {
		return nil, fmt.Errorf("resource: unknown class %q", class)
	}
	res := domain.Resource{Class: class, ID: id}
	var status string
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&res.OwnerID, &res.CellID, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	res.Status = domain.Status(status)
	return &res, nil
}
