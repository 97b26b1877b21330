// Package service implements the account flows built on action and session tokens:
// registration, activation, password reset and change, login, logout and deactivation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	actiontokendomain "volunteer-platform/backend/internal/actiontoken/domain"
	actiontokenservice "volunteer-platform/backend/internal/actiontoken/service"
	"volunteer-platform/backend/internal/audit"
	auditdomain "volunteer-platform/backend/internal/audit/domain"
	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/notify"
	sessiondomain "volunteer-platform/backend/internal/session/domain"
	sessionservice "volunteer-platform/backend/internal/session/service"
	userdomain "volunteer-platform/backend/internal/user/domain"
	userrepo "volunteer-platform/backend/internal/user/repository"
)

// Sentinel errors for the identity service; the handler maps them to HTTP statuses.
var (
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrWrongPassword          = errors.New("current password is incorrect")
	ErrUserNotFound           = userdomain.ErrNotFound
)

// Validation errors. Their text is safe to return to clients.
var (
	ErrInvalidEmail     = errors.New("enter a valid email address")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNumeric  = errors.New("password must not be entirely numeric")
)

// IsValidation reports whether err is an input validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordNumeric)
}

// UserRepo is the user persistence the service needs.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// ActionTokens is the action token store.
type ActionTokens interface {
	Issue(ctx context.Context, userID string, purpose actiontokendomain.Purpose) (*actiontokendomain.Token, error)
	Redeem(ctx context.Context, key string, purpose actiontokendomain.Purpose) (*actiontokendomain.Token, error)
	RevokeUser(ctx context.Context, userID string) error
}

// Sessions is the session token store.
type Sessions interface {
	Authenticate(ctx context.Context, email, password string) (*userdomain.User, *sessiondomain.Session, error)
	Revoke(ctx context.Context, key string) error
	RevokeUser(ctx context.Context, userID string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	VerifyPassword(hash, password string) bool
}

// ActivityReader lists a user's audit trail.
type ActivityReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*auditdomain.AuditLog, error)
}

// Config holds account flow settings, read once at startup.
type Config struct {
	// AutoActivate creates accounts already active.
	AutoActivate bool
	// ActivationURL and PasswordResetURL are deep-link templates containing notify.TokenPlaceholder.
	ActivationURL    string
	PasswordResetURL string
}

// RegisterInput is the data submitted at sign-up.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Service runs the account flows.
type Service struct {
	users    UserRepo
	tokens   ActionTokens
	sessions Sessions
	hasher   PasswordHasher
	notifier notify.Notifier
	audit    audit.AuditLogger
	activity ActivityReader
	cfg      Config
	clock    clock.Clock
}

// NewService returns a Service. auditLogger and activity may be nil; clk nil means the wall clock.
func NewService(
	users UserRepo,
	tokens ActionTokens,
	sessions Sessions,
	hasher PasswordHasher,
	notifier notify.Notifier,
	auditLogger audit.AuditLogger,
	activity ActivityReader,
	cfg Config,
	clk clock.Clock,
) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		hasher:   hasher,
		notifier: notifier,
		audit:    auditLogger,
		activity: activity,
		cfg:      cfg,
		clock:    clk,
	}
}

// Register creates an account, inactive unless AutoActivate is set, and sends the activation
// link. A failed notification is logged; the account still exists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*userdomain.User, error) {
	email := userdomain.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     s.cfg.AutoActivate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	s.logEvent(ctx, u.ID, "user_registered", "user")

	if u.IsActive {
		return u, nil
	}
	tok, err := s.tokens.Issue(ctx, u.ID, actiontokendomain.PurposeAccountActivation)
	if err != nil {
		return nil, err
	}
	s.send(ctx, notify.KindActivation, u.Email, s.cfg.ActivationURL, tok.Key)
	return u, nil
}

// Activate redeems an account_activation key and activates its user. A key works once.
func (s *Service) Activate(ctx context.Context, key string) (*userdomain.User, error) {
	tok, err := s.redeem(ctx, key, actiontokendomain.PurposeAccountActivation)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidToken
	}
	if _, err := s.users.SetActive(ctx, u.ID, true); err != nil {
		return nil, err
	}
	u.IsActive = true
	s.logEvent(ctx, u.ID, "account_activated", "user")
	return u, nil
}

// RequestPasswordReset sends a reset link to an active account. Unknown and inactive emails
// succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, userdomain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if u == nil || !u.IsActive {
		return nil
	}
	tok, err := s.tokens.Issue(ctx, u.ID, actiontokendomain.PurposePasswordChange)
	if err != nil {
		return err
	}
	s.send(ctx, notify.KindPasswordReset, u.Email, s.cfg.PasswordResetURL, tok.Key)
	s.logEvent(ctx, u.ID, "password_reset_requested", "user")
	return nil
}

// ResetPassword redeems a password_change key, sets the new password and revokes the user's
// session. The key is untouched when the new password is rejected.
func (s *Service) ResetPassword(ctx context.Context, key, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	tok, err := s.redeem(ctx, key, actiontokendomain.PurposePasswordChange)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, tok.UserID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeUser(ctx, tok.UserID); err != nil {
		return err
	}
	s.logEvent(ctx, tok.UserID, "password_reset", "user")
	return nil
}

// ChangePassword replaces the password of userID after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	if !s.hasher.VerifyPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	s.logEvent(ctx, u.ID, "password_changed", "user")
	return nil
}

// Login exchanges email and password for the user's session. Unknown email, wrong password
// and inactive account all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*userdomain.User, *sessiondomain.Session, error) {
	u, ses, err := s.sessions.Authenticate(ctx, email, password)
	if errors.Is(err, sessionservice.ErrInvalidCredentials) || errors.Is(err, sessionservice.ErrInactiveUser) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	s.logEvent(ctx, u.ID, "login", "session")
	return u, ses, nil
}

// Logout revokes the session with key.
func (s *Service) Logout(ctx context.Context, userID, key string) error {
	if err := s.sessions.Revoke(ctx, key); err != nil {
		return err
	}
	s.logEvent(ctx, userID, "logout", "session")
	return nil
}

// Deactivate marks userID inactive and drops its session and outstanding action tokens, so a
// pending activation link cannot bring the account back. The account is kept.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	ok, err := s.users.SetActive(ctx, userID, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return err
	}
	if err := s.tokens.RevokeUser(ctx, userID); err != nil {
		return err
	}
	s.logEvent(ctx, userID, "user_deactivated", "user")
	return nil
}

// Activity returns the most recent audit entries of userID, newest first.
func (s *Service) Activity(ctx context.Context, userID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	if s.activity == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.activity.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) redeem(ctx context.Context, key string, purpose actiontokendomain.Purpose) (*actiontokendomain.Token, error) {
	tok, err := s.tokens.Redeem(ctx, key, purpose)
	if errors.Is(err, actiontokenservice.ErrNotFound) || errors.Is(err, actiontokenservice.ErrExpired) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("redeem %s token: %w", purpose, err)
	}
	return tok, nil
}

func (s *Service) send(ctx context.Context, kind notify.Kind, email, tmpl, key string) {
	msg := notify.Message{Kind: kind, Email: email, Link: notify.RenderLink(tmpl, key)}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Printf("identity: notify %s for %s: %v", kind, email, err)
	}
}

func (s *Service) logEvent(ctx context.Context, userID, action, resource string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, "")
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	numeric := true
	for _, r := range password {
		if r < '0' || r > '9' {
			numeric = false
			break
		}
	}
	if numeric {
		return ErrPasswordNumeric
	}
	return nil
}
