package repository

import (
	"context"
	"database/sql"

	"volunteer-platform/backend/internal/membership/domain"
)

// PostgresRepository stores manager sets in cell_managers.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a cell manager repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// IsManager reports whether userID is in cellID's manager set.
func (r *PostgresRepository) IsManager(ctx context.Context, cellID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cell_managers WHERE cell_id = $1 AND user_id = $2)`,
		cellID, userID,
	).Scan(&ok)
	return ok, err
}

// ListManagers returns the manager set of cellID ordered by when each was added.
func (r *PostgresRepository) ListManagers(ctx context.Context, cellID string) ([]*domain.CellManager, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cell_id, user_id, created_at FROM cell_managers WHERE cell_id = $1 ORDER BY created_at, user_id`,
		cellID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.CellManager
	for rows.Next() {
		var m domain.CellManager
		if err := rows.Scan(&m.CellID, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListCellsManagedBy returns the IDs of cells userID manages.
func (r *PostgresRepository) ListCellsManagedBy(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT cell_id FROM cell_managers WHERE user_id = $1 ORDER BY cell_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Add inserts the pair; an existing pair is left as is.
func (r *PostgresRepository) Add(ctx context.Context, m *domain.CellManager) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cell_managers (cell_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		m.CellID, m.UserID, m.CreatedAt,
	)
	return err
}

// Remove deletes the pair.
func (r *PostgresRepository) Remove(ctx context.Context, cellID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cell_managers WHERE cell_id = $1 AND user_id = $2`, cellID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
