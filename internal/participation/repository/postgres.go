package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"volunteer-platform/backend/internal/participation/domain"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
)

const selectParticipation = `SELECT p.id, p.event_id, p.user_id, COALESCE(e.cell_id, ''), p.status, p.is_present, p.created_at, p.updated_at
	FROM participations p JOIN events e ON e.id = p.event_id`

// PostgresRepository stores participations.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a participation repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipation(s scanner) (*domain.Participation, error) {
	var (
		p      domain.Participation
		status string
	)
	if err := s.Scan(&p.ID, &p.EventID, &p.UserID, &p.CellID, &status, &p.IsPresent, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = resourcedomain.Status(status)
	return &p, nil
}

// Get returns the participation for id, or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.Participation, error) {
	p, err := scanParticipation(r.db.QueryRowContext(ctx, selectParticipation+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// List returns participations visible under f, oldest first.
func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*domain.Participation, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if f.Unrestricted {
		rows, err = r.db.QueryContext(ctx, selectParticipation+` ORDER BY p.created_at, p.id`)
	} else {
		cells := f.CellIDs
		if cells == nil {
			cells = []string{}
		}
		rows, err = r.db.QueryContext(ctx,
			selectParticipation+` WHERE p.user_id = $1 OR e.cell_id = ANY($2) ORDER BY p.created_at, p.id`,
			f.OwnerID, cells,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts p. A second participation of the same user in the same event returns ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Participation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO participations (id, event_id, user_id, status, is_present, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.EventID, p.UserID, string(p.Status), p.IsPresent, p.CreatedAt, p.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// Update persists status, presence and updated_at.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Participation) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE participations SET status = $2, is_present = $3, updated_at = $4 WHERE id = $1`,
		p.ID, string(p.Status), p.IsPresent, p.UpdatedAt,
	)
	return err
}

// Delete removes the participation with id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM participations WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
