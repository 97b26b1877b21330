package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"volunteer-platform/backend/internal/clock"
)

type recordingNotifier struct {
	msgs []Message
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, msg Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestOutbox_KeepsLastMessagePerEmail(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	next := &recordingNotifier{}
	o := NewOutbox(next, time.Hour, clk)

	_ = o.Notify(ctx, Message{Kind: KindActivation, Email: "Vol@Example.com", Link: "L1"})
	_ = o.Notify(ctx, Message{Kind: KindPasswordReset, Email: "vol@example.com", Link: "L2"})

	msg, ok := o.Get(ctx, "VOL@example.com")
	if !ok {
		t.Fatal("Get should find the message")
	}
	if msg.Link != "L2" {
		t.Errorf("Link = %q, want %q", msg.Link, "L2")
	}
	if len(next.msgs) != 2 {
		t.Errorf("forwarded = %d, want 2", len(next.msgs))
	}
}

func TestOutbox_Expiry(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	o := NewOutbox(nil, time.Minute, clk)

	_ = o.Notify(ctx, Message{Email: "a@b.c", Link: "L"})
	clk.Advance(time.Minute)
	if _, ok := o.Get(ctx, "a@b.c"); ok {
		t.Error("message should expire at ttl")
	}
	if _, ok := o.Get(ctx, "missing@b.c"); ok {
		t.Error("unknown email should not be found")
	}
}

func TestOutbox_ForwardError(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(&recordingNotifier{err: errors.New("relay down")}, time.Hour, nil)
	if err := o.Notify(ctx, Message{Email: "a@b.c"}); err == nil {
		t.Fatal("forwarding error should be returned")
	}
	if _, ok := o.Get(ctx, "a@b.c"); !ok {
		t.Error("message should be kept even when forwarding fails")
	}
}
