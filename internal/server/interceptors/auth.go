package interceptors

import (
	"context"
	"log"
	"net/http"
	"strings"

	sessiondomain "volunteer-platform/backend/internal/session/domain"
	sessionservice "volunteer-platform/backend/internal/session/service"
	userdomain "volunteer-platform/backend/internal/user/domain"
)

// Accepted Authorization schemes, lowercased with the trailing space.
var tokenPrefixes = []string{"token ", "bearer "}

// SessionResolver maps a presented session key to its user.
type SessionResolver interface {
	Resolve(ctx context.Context, key string) (*userdomain.User, *sessiondomain.Session, error)
}

// Auth returns middleware that resolves "Authorization: Token <key>" (or Bearer) through
// sessions and stores the actor in the request context. Requests without a recognised
// scheme proceed anonymously. A presented key that is rejected for any reason answers 401
// with the same body; a store failure answers 503.
func Auth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, presented := extractToken(r)
			if !presented {
				next.ServeHTTP(w, r)
				return
			}
			if key == "" {
				Unauthenticated(w)
				return
			}
			u, _, err := sessions.Resolve(r.Context(), key)
			switch sessionservice.OutcomeOf(err) {
			case sessionservice.Accepted:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), u, key)))
			case sessionservice.RejectedUnavailable:
				log.Printf("auth: session store unavailable: %v", err)
				WriteError(w, http.StatusServiceUnavailable, MsgStorageUnavailable)
			default:
				Unauthenticated(w)
			}
		})
	}
}

// RequireAuth answers 401 unless Auth stored an actor.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			Unauthenticated(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Unauthenticated writes the 401 response with a Token challenge.
func Unauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Token")
	WriteError(w, http.StatusUnauthorized, MsgNotAuthenticated)
}

// extractToken returns the key after a Token or Bearer scheme. presented is false when the
// header is absent or uses another scheme.
func extractToken(r *http.Request) (key string, presented bool) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if v == "" {
		return "", false
	}
	lower := strings.ToLower(v)
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(lower+" ", p) {
			key = strings.TrimSpace(v[len(p)-1:])
			if strings.ContainsAny(key, " \t") {
				return "", true
			}
			return key, true
		}
	}
	return "", false
}
