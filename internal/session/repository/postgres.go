package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"volunteer-platform/backend/internal/session/domain"
)

// PostgresRepository stores sessions in the sessions table (unique on user_id).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `key, user_id, created_at, expires_at`

// GetByKey returns the session for key, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE key = $1`, key))
}

// GetByUser returns the user's session, or nil if the user has none.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1`, userID))
}

// Replace upserts on user_id, overwriting only a row that is already expired at now. When a live
// row wins the conflict nothing is returned by the upsert and the live row is read back.
func (r *PostgresRepository) Replace(ctx context.Context, s *domain.Session, now time.Time) (*domain.Session, error) {
	got, err := scanSession(r.db.QueryRowContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET key = EXCLUDED.key, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE sessions.expires_at <= $5
		RETURNING `+sessionColumns,
		s.Key, s.UserID, s.CreatedAt, s.ExpiresAt, now,
	))
	if err != nil {
		return nil, err
	}
	if got != nil {
		return got, nil
	}
	return r.GetByUser(ctx, s.UserID)
}

// UpdateExpiry sets expires_at for key.
func (r *PostgresRepository) UpdateExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET expires_at = $2 WHERE key = $1`, key, expiresAt)
	return err
}

// Delete removes the session with key.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = $1`, key)
	return err
}

// DeleteByUser removes every session of userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpired removes sessions whose expiry is at or before before.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.Key, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
