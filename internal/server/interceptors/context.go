package interceptors

import (
	"context"

	userdomain "volunteer-platform/backend/internal/user/domain"
)

type contextKey struct{ name string }

var (
	actorKey      = contextKey{"actor"}
	sessionKeyKey = contextKey{"session_key"}
	clientIPKey   = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated user and the session key it presented.
// Handlers read these via GetActor, GetUserID, GetSessionKey.
func WithIdentity(ctx context.Context, actor *userdomain.User, sessionKey string) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	ctx = context.WithValue(ctx, sessionKeyKey, sessionKey)
	return ctx
}

// GetActor returns the authenticated user and true if set; otherwise nil, false.
func GetActor(ctx context.Context) (*userdomain.User, bool) {
	u, ok := ctx.Value(actorKey).(*userdomain.User)
	return u, ok && u != nil
}

// GetUserID returns the authenticated user's id and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	u, ok := GetActor(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}

// GetSessionKey returns the presented session key and true if set; otherwise "", false.
func GetSessionKey(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionKeyKey).(string)
	return v, ok && v != ""
}

// WithClientIP returns a context carrying the caller's IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the IP stored by ClientIPMiddleware, or "unknown".
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
