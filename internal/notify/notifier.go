// Package notify delivers account links (activation, password reset) to users.
package notify

import (
	"context"
	"log"
	"strings"
)

// Kind names the link being delivered.
type Kind string

const (
	KindActivation    Kind = "account_activation"
	KindPasswordReset Kind = "password_reset"
)

// TokenPlaceholder is replaced by the action token key in link templates.
const TokenPlaceholder = "{token}"

// Message is one link addressed to one email.
type Message struct {
	Kind  Kind   `json:"kind"`
	Email string `json:"email"`
	Link  string `json:"link"`
}

// Notifier hands a message to a delivery channel. Delivery is asynchronous from the
// caller's point of view; an error means the message was not accepted.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// RenderLink substitutes key into tmpl. A template without the placeholder gets the key appended.
func RenderLink(tmpl, key string) string {
	if strings.Contains(tmpl, TokenPlaceholder) {
		return strings.ReplaceAll(tmpl, TokenPlaceholder, key)
	}
	return tmpl + key
}

// LogNotifier logs that a message was sent without its link. Used when no delivery channel is configured.
type LogNotifier struct{}

// Notify logs kind and recipient.
func (LogNotifier) Notify(ctx context.Context, msg Message) error {
	log.Printf("notify: %s link for %s (no delivery channel configured)", msg.Kind, msg.Email)
	return nil
}
