package telemetry

import (
	"context"
	"encoding/json"
	"time"

	actiontokendomain "volunteer-platform/backend/internal/actiontoken/domain"
	"volunteer-platform/backend/internal/policy/engine"
	"volunteer-platform/backend/internal/telemetry/domain"
)

// SecurityEmitter turns credential rejections and authorization denials into telemetry events.
// It satisfies the action token and session event sinks and engine.Observer.
type SecurityEmitter struct {
	emitter EventEmitter
	now     func() time.Time
}

// NewSecurityEmitter returns a SecurityEmitter writing to emitter. emitter may be nil.
func NewSecurityEmitter(emitter EventEmitter) *SecurityEmitter {
	return &SecurityEmitter{emitter: emitter, now: func() time.Time { return time.Now().UTC() }}
}

// TokenRejected records a failed action token redemption.
func (s *SecurityEmitter) TokenRejected(ctx context.Context, kind string, purpose actiontokendomain.Purpose, userID string) {
	s.emit(userID, kind, "action_token", map[string]string{"purpose": string(purpose)})
}

// SessionRejected records a failed session resolution or login.
func (s *SecurityEmitter) SessionRejected(ctx context.Context, kind, userID string) {
	s.emit(userID, kind, "session", nil)
}

// Denied records an authorization denial.
func (s *SecurityEmitter) Denied(ctx context.Context, req engine.Request, dec engine.Decision) {
	userID := ""
	if req.Actor != nil {
		userID = req.Actor.ID
	}
	meta := map[string]string{
		"class":  string(req.Class),
		"action": string(req.Action),
		"reason": dec.Reason,
	}
	if req.Resource != nil {
		meta["resource_id"] = req.Resource.ID
	}
	s.emit(userID, domain.EventAuthzDenied, "authz", meta)
}

func (s *SecurityEmitter) emit(userID, eventType, source string, meta map[string]string) {
	if s == nil || s.emitter == nil {
		return
	}
	ev := &domain.Event{UserID: userID, EventType: eventType, Source: source, CreatedAt: s.now()}
	if len(meta) > 0 {
		ev.Metadata, _ = json.Marshal(meta)
	}
	EmitAsync(s.emitter, ev)
}
