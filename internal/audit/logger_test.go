package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"volunteer-platform/backend/internal/audit/domain"
	"volunteer-platform/backend/internal/policy/engine"
	resourcedomain "volunteer-platform/backend/internal/resource/domain"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor)

	logger.LogEvent(context.Background(), "user-1", "login_success", "session", "metadata")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != "login_success" {
		t.Errorf("action = %q, want %q", entry.Action, "login_success")
	}
	if entry.Resource != "session" {
		t.Errorf("resource = %q, want %q", entry.Resource, "session")
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != "metadata" {
		t.Errorf("metadata = %q, want %q", entry.Metadata, "metadata")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NilExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), "", "login_failure", "session", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil).LogEvent(context.Background(), "user-1", "logout", "session", "")
	if len(repo.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(repo.entries))
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil).LogEvent(context.Background(), "user-1", "logout", "session", "")
	var l *Logger
	l.LogEvent(context.Background(), "user-1", "logout", "session", "")
}

func TestLogger_Denied(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.Denied(context.Background(), engine.Request{
		Actor:    &userdomain.User{ID: "user-1"},
		Class:    resourcedomain.ClassParticipation,
		Action:   "update",
		Resource: &resourcedomain.Resource{ID: "p-1"},
	}, engine.Decision{Reason: engine.ReasonInsufficientRole, Matched: -1})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Action != "authz_denied" || entry.Resource != "participation" || entry.UserID != "user-1" {
		t.Errorf("entry = %+v", entry)
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(entry.Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["reason"] != engine.ReasonInsufficientRole || meta["resource_id"] != "p-1" || meta["action"] != "update" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestLogger_Denied_Anonymous(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).Denied(context.Background(), engine.Request{
		Class:  resourcedomain.ClassEvent,
		Action: "list",
	}, engine.Decision{Reason: engine.ReasonInsufficientRole, Matched: -1})

	if len(repo.entries) != 1 || repo.entries[0].UserID != "" {
		t.Fatalf("entries = %+v, want one anonymous entry", repo.entries)
	}
}
