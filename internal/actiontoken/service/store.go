package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"volunteer-platform/backend/internal/actiontoken/domain"
	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/security"
	telemetrydomain "volunteer-platform/backend/internal/telemetry/domain"
)

// Sentinel errors for the action token store. Callers at the HTTP boundary collapse
// ErrNotFound and ErrExpired into one "invalid token" response.
var (
	ErrNotFound           = errors.New("action token not found")
	ErrExpired            = errors.New("action token expired")
	ErrUnknownPurpose     = errors.New("unknown action token purpose")
	ErrStorageUnavailable = errors.New("action token storage unavailable")
)

// Repository is the persistence the store needs.
type Repository interface {
	Create(ctx context.Context, t *domain.Token) error
	GetByKeyHash(ctx context.Context, keyHash string, purpose domain.Purpose) (*domain.Token, error)
	ReplaceActive(ctx context.Context, t *domain.Token, now time.Time) error
	Delete(ctx context.Context, keyHash string) error
	Claim(ctx context.Context, keyHash string, purpose domain.Purpose, now time.Time) (*domain.Token, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	SetExpiry(ctx context.Context, keyHash string, expiresAt time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// EventSink receives diagnostics that are hidden from callers (expired vs unknown keys).
type EventSink interface {
	TokenRejected(ctx context.Context, kind string, purpose domain.Purpose, userID string)
}

// Config holds per-purpose lifetimes, read once at startup.
type Config struct {
	ActivationTTL     time.Duration
	PasswordChangeTTL time.Duration
}

// TTL returns the lifetime configured for p.
func (c Config) TTL(p domain.Purpose) (time.Duration, error) {
	switch p {
	case domain.PurposeAccountActivation:
		return c.ActivationTTL, nil
	case domain.PurposePasswordChange:
		return c.PasswordChangeTTL, nil
	}
	return 0, ErrUnknownPurpose
}

// Store issues, looks up and invalidates single-use action tokens.
type Store struct {
	repo   Repository
	cfg    Config
	clock  clock.Clock
	secret security.SecretFunc
	events EventSink
}

// NewStore returns a Store. clk and secret may be nil to use the wall clock and
// security.NewTokenKey.
func NewStore(repo Repository, cfg Config, clk clock.Clock, secret security.SecretFunc) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	if secret == nil {
		secret = security.NewTokenKey
	}
	return &Store{repo: repo, cfg: cfg, clock: clk, secret: secret}
}

// SetEventSink installs a sink for rejected-token diagnostics. Optional.
func (s *Store) SetEventSink(sink EventSink) {
	s.events = sink
}

// Issue creates a token for userID. For password_change every earlier non-expired token of the
// same user is expired in the same transaction, so at most one stays live.
// The returned token is the only place the plain key appears.
func (s *Store) Issue(ctx context.Context, userID string, purpose domain.Purpose) (*domain.Token, error) {
	ttl, err := s.cfg.TTL(purpose)
	if err != nil {
		return nil, err
	}
	key, err := s.secret()
	if err != nil {
		// An exhausted entropy source is not recoverable here.
		panic("actiontoken: secret generation failed: " + err.Error())
	}
	now := s.clock.Now()
	t := &domain.Token{
		Key:       key,
		KeyHash:   security.HashToken(key),
		Purpose:   purpose,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if purpose == domain.PurposePasswordChange {
		err = s.repo.ReplaceActive(ctx, t, now)
	} else {
		err = s.repo.Create(ctx, t)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return t, nil
}

// Lookup returns the token matching key and purpose exactly. Expired tokens are returned;
// callers check Expired. Unknown keys yield ErrNotFound.
func (s *Store) Lookup(ctx context.Context, key string, purpose domain.Purpose) (*domain.Token, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	t, err := s.repo.GetByKeyHash(ctx, security.HashToken(key), purpose)
	if err != nil {
		return nil, storageErr(err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	t.Key = key
	return t, nil
}

// Expired reports whether t is inert now. No side effect.
func (s *Store) Expired(t *domain.Token) bool {
	return t.ExpiredAt(s.clock.Now())
}

// Consume deletes t. Consuming an already consumed token is a no-op.
func (s *Store) Consume(ctx context.Context, t *domain.Token) error {
	if err := s.repo.Delete(ctx, hashOf(t)); err != nil {
		return storageErr(err)
	}
	return nil
}

// Expire sets t's expiry to now without deleting the row.
func (s *Store) Expire(ctx context.Context, t *domain.Token) error {
	now := s.clock.Now()
	if err := s.repo.SetExpiry(ctx, hashOf(t), now); err != nil {
		return storageErr(err)
	}
	t.ExpiresAt = now
	return nil
}

// Redeem looks up key, rejects it if expired and consumes it. It returns ErrNotFound or
// ErrExpired; both are logged distinctly and reported to the event sink. The consume is a
// conditional delete, so a key redeemed concurrently succeeds for exactly one caller.
func (s *Store) Redeem(ctx context.Context, key string, purpose domain.Purpose) (*domain.Token, error) {
	t, err := s.Lookup(ctx, key, purpose)
	if errors.Is(err, ErrNotFound) {
		log.Printf("actiontoken: %s token not found", purpose)
		s.reject(ctx, telemetrydomain.EventTokenNotFound, purpose, "")
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if s.Expired(t) {
		log.Printf("actiontoken: %s token expired for user %s", purpose, t.UserID)
		s.reject(ctx, telemetrydomain.EventTokenExpired, purpose, t.UserID)
		return nil, ErrExpired
	}
	claimed, err := s.repo.Claim(ctx, hashOf(t), purpose, s.clock.Now())
	if err != nil {
		return nil, storageErr(err)
	}
	if claimed == nil {
		log.Printf("actiontoken: %s token already redeemed for user %s", purpose, t.UserID)
		s.reject(ctx, telemetrydomain.EventTokenNotFound, purpose, t.UserID)
		return nil, ErrNotFound
	}
	claimed.Key = key
	return claimed, nil
}

// RevokeUser deletes every outstanding token of userID, live or expired.
func (s *Store) RevokeUser(ctx context.Context, userID string) error {
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return storageErr(err)
	}
	if n > 0 {
		log.Printf("actiontoken: revoked %d tokens for user %s", n, userID)
	}
	return nil
}

// PurgeExpired deletes rows that expired at or before before. Housekeeping only.
func (s *Store) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, before)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *Store) reject(ctx context.Context, kind string, purpose domain.Purpose, userID string) {
	if s.events != nil {
		s.events.TokenRejected(ctx, kind, purpose, userID)
	}
}

func hashOf(t *domain.Token) string {
	if t.KeyHash != "" {
		return t.KeyHash
	}
	return security.HashToken(t.Key)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
