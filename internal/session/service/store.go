package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/security"
	"volunteer-platform/backend/internal/session/domain"
	telemetrydomain "volunteer-platform/backend/internal/telemetry/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// Sentinel errors for the session store; the HTTP layer maps them to 401 without
// revealing which one occurred.
var (
	ErrNotFound           = errors.New("session not found")
	ErrExpired            = errors.New("session expired")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStorageUnavailable = errors.New("session storage unavailable")
)

// Repository is the persistence the store needs.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*domain.Session, error)
	GetByUser(ctx context.Context, userID string) (*domain.Session, error)
	Replace(ctx context.Context, s *domain.Session, now time.Time) (*domain.Session, error)
	UpdateExpiry(ctx context.Context, key string, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// UserRepo is the minimal user repository needed by the session store.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	VerifyPassword(hash, password string) bool
}

// EventSink receives rejection diagnostics that callers never see.
type EventSink interface {
	SessionRejected(ctx context.Context, kind, userID string)
}

// Config holds session settings, read once at startup.
type Config struct {
	TTL            time.Duration
	RenewOnSuccess bool
}

// Store issues, resolves and revokes session tokens. One session per user.
type Store struct {
	repo     Repository
	users    UserRepo
	verifier PasswordVerifier
	cfg      Config
	clock    clock.Clock
	secret   security.SecretFunc
	events   EventSink
}

// NewStore returns a Store. clk and secret may be nil to use the wall clock and security.NewTokenKey.
func NewStore(repo Repository, users UserRepo, verifier PasswordVerifier, cfg Config, clk clock.Clock, secret security.SecretFunc) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	if secret == nil {
		secret = security.NewTokenKey
	}
	return &Store{repo: repo, users: users, verifier: verifier, cfg: cfg, clock: clk, secret: secret}
}

// SetEventSink installs a sink for rejection diagnostics. Optional.
func (s *Store) SetEventSink(sink EventSink) {
	s.events = sink
}

// Authenticate checks email and password and returns the user's live session, creating one when
// the user has none or only an expired one. An expired session is replaced, never extended.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*userdomain.User, *domain.Session, error) {
	u, err := s.users.GetByEmail(ctx, userdomain.NormalizeEmail(email))
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if u == nil || !s.verifier.VerifyPassword(u.PasswordHash, password) {
		s.reject(ctx, telemetrydomain.EventInvalidCredentials, "")
		return nil, nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		log.Printf("session: login refused for inactive user %s", u.ID)
		s.reject(ctx, telemetrydomain.EventInactiveUser, u.ID)
		return nil, nil, ErrInactiveUser
	}

	now := s.clock.Now()
	existing, err := s.repo.GetByUser(ctx, u.ID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if existing != nil && !existing.ExpiredAt(now) {
		return u, existing, nil
	}

	key, err := s.secret()
	if err != nil {
		panic("session: secret generation failed: " + err.Error())
	}
	fresh := &domain.Session{Key: key, UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(s.cfg.TTL)}
	ses, err := s.repo.Replace(ctx, fresh, now)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	return u, ses, nil
}

// Resolve maps a presented key to its user. Rejections are checked in order: unknown key,
// missing or inactive user, expired session. With RenewOnSuccess a successful call also
// moves ExpiresAt to now+TTL and persists it, so Resolve is not read-only.
func (s *Store) Resolve(ctx context.Context, key string) (*userdomain.User, *domain.Session, error) {
	if key == "" {
		return nil, nil, ErrNotFound
	}
	ses, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if ses == nil {
		log.Printf("session: token not found")
		s.reject(ctx, telemetrydomain.EventTokenNotFound, "")
		return nil, nil, ErrNotFound
	}
	u, err := s.users.GetByID(ctx, ses.UserID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if u == nil || !u.IsActive {
		log.Printf("session: token presented for inactive user %s", ses.UserID)
		s.reject(ctx, telemetrydomain.EventInactiveUser, ses.UserID)
		return nil, nil, ErrInactiveUser
	}
	now := s.clock.Now()
	if ses.ExpiredAt(now) {
		log.Printf("session: token expired for user %s", ses.UserID)
		s.reject(ctx, telemetrydomain.EventTokenExpired, ses.UserID)
		return nil, nil, ErrExpired
	}
	if s.cfg.RenewOnSuccess {
		exp := now.Add(s.cfg.TTL)
		if err := s.repo.UpdateExpiry(ctx, ses.Key, exp); err != nil {
			return nil, nil, storageErr(err)
		}
		ses.ExpiresAt = exp
	}
	return u, ses, nil
}

// Revoke deletes the session with key. Revoking an unknown key is a no-op.
func (s *Store) Revoke(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return storageErr(err)
	}
	return nil
}

// RevokeUser deletes every session of userID.
func (s *Store) RevokeUser(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return storageErr(err)
	}
	return nil
}

// PurgeExpired deletes sessions that expired at or before before. Housekeeping only.
func (s *Store) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, before)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *Store) reject(ctx context.Context, kind, userID string) {
	if s.events != nil {
		s.events.SessionRejected(ctx, kind, userID)
	}
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
