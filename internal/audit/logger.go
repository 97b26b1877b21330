package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"volunteer-platform/backend/internal/audit/domain"
	auditrepo "volunteer-platform/backend/internal/audit/repository"
	"volunteer-platform/backend/internal/policy/engine"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by account flows
// and the HTTP audit middleware. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
// It also records authorization denials as an engine.Observer.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

type denialMetadata struct {
	Action     string `json:"action"`
	Reason     string `json:"reason"`
	ResourceID string `json:"resource_id,omitempty"`
}

// Denied records an authorization denial as action "authz_denied" on the resource class.
func (l *Logger) Denied(ctx context.Context, req engine.Request, dec engine.Decision) {
	userID := ""
	if req.Actor != nil {
		userID = req.Actor.ID
	}
	meta := denialMetadata{Action: string(req.Action), Reason: dec.Reason}
	if req.Resource != nil {
		meta.ResourceID = req.Resource.ID
	}
	b, _ := json.Marshal(meta)
	l.LogEvent(ctx, userID, "authz_denied", string(req.Class), string(b))
}
