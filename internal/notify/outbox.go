package notify

import (
	"context"
	"sync"
	"time"

	"volunteer-platform/backend/internal/clock"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

type entry struct {
	msg       Message
	expiresAt time.Time
}

// Outbox keeps the last message per email in memory so links can be read back in development.
// It forwards every message to next. Not used in production.
type Outbox struct {
	mu    sync.RWMutex
	m     map[string]entry
	next  Notifier
	ttl   time.Duration
	clock clock.Clock
}

// NewOutbox returns an Outbox that retains messages for ttl and forwards to next (may be nil).
func NewOutbox(next Notifier, ttl time.Duration, clk clock.Clock) *Outbox {
	if clk == nil {
		clk = clock.Real()
	}
	return &Outbox{m: make(map[string]entry), next: next, ttl: ttl, clock: clk}
}

// Notify stores msg under its normalized email, replacing any earlier one, then forwards it.
func (o *Outbox) Notify(ctx context.Context, msg Message) error {
	o.mu.Lock()
	o.m[userdomain.NormalizeEmail(msg.Email)] = entry{msg: msg, expiresAt: o.clock.Now().Add(o.ttl)}
	o.mu.Unlock()
	if o.next != nil {
		return o.next.Notify(ctx, msg)
	}
	return nil
}

// Get returns the last message for email if present and not expired.
func (o *Outbox) Get(ctx context.Context, email string) (Message, bool) {
	key := userdomain.NormalizeEmail(email)
	o.mu.RLock()
	e, ok := o.m[key]
	o.mu.RUnlock()
	if !ok {
		return Message{}, false
	}
	if !e.expiresAt.After(o.clock.Now()) {
		o.mu.Lock()
		delete(o.m, key)
		o.mu.Unlock()
		return Message{}, false
	}
	return e.msg, true
}
