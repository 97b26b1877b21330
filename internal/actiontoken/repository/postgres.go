package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"volunteer-platform/backend/internal/actiontoken/domain"
	"volunteer-platform/backend/internal/db"
)

// PostgresRepository stores action tokens in the action_tokens table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an action token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertToken = `INSERT INTO action_tokens (key_hash, purpose, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`

// Create inserts t.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	_, err := r.db.ExecContext(ctx, insertToken, t.KeyHash, string(t.Purpose), t.UserID, t.CreatedAt, t.ExpiresAt)
	return err
}

// GetByKeyHash returns the token for keyHash and purpose, or nil if not found.
func (r *PostgresRepository) GetByKeyHash(ctx context.Context, keyHash string, purpose domain.Purpose) (*domain.Token, error) {
	var t domain.Token
	var p string
	err := r.db.QueryRowContext(ctx,
		`SELECT key_hash, purpose, user_id, created_at, expires_at FROM action_tokens WHERE key_hash = $1 AND purpose = $2`,
		keyHash, string(purpose),
	).Scan(&t.KeyHash, &p, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Purpose = domain.Purpose(p)
	return &t, nil
}

// ReplaceActive expires the user's live tokens of the same purpose and inserts t in one transaction.
// The user row is locked first so concurrent issuances for the same user serialize.
func (r *PostgresRepository) ReplaceActive(ctx context.Context, t *domain.Token, now time.Time) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, t.UserID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE action_tokens SET expires_at = $3 WHERE user_id = $1 AND purpose = $2 AND expires_at > $3`,
			t.UserID, string(t.Purpose), now,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertToken, t.KeyHash, string(t.Purpose), t.UserID, t.CreatedAt, t.ExpiresAt)
		return err
	})
}

// Delete removes the token row; a missing row is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, keyHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM action_tokens WHERE key_hash = $1`, keyHash)
	return err
}

// Claim deletes and returns the live token for keyHash and purpose in one statement.
func (r *PostgresRepository) Claim(ctx context.Context, keyHash string, purpose domain.Purpose, now time.Time) (*domain.Token, error) {
	var t domain.Token
	var p string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM action_tokens WHERE key_hash = $1 AND purpose = $2 AND expires_at > $3
		 RETURNING key_hash, purpose, user_id, created_at, expires_at`,
		keyHash, string(purpose), now,
	).Scan(&t.KeyHash, &p, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Purpose = domain.Purpose(p)
	return &t, nil
}

// DeleteByUser removes all of userID's tokens.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM action_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetExpiry overwrites expires_at, keeping the row.
func (r *PostgresRepository) SetExpiry(ctx context.Context, keyHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE action_tokens SET expires_at = $2 WHERE key_hash = $1`, keyHash, expiresAt)
	return err
}

// DeleteExpired removes rows whose expiry is at or before before.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM action_tokens WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
