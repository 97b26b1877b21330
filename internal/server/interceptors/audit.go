package interceptors

import (
	"encoding/json"
	"net/http"

	"volunteer-platform/backend/internal/audit"
)

// auditMetadata is the JSON shape stored in AuditLog.Metadata for request entries.
type auditMetadata struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
}

// Audit records an audit log entry after each mutating request made by an authenticated
// caller. GET and HEAD are not audited. Best-effort: the logger never fails the request.
func Audit(logger audit.AuditLogger, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		if logger == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			return
		}
		// Auth resolves the actor in an outer handler, so it is visible on r.
		userID, ok := GetUserID(r.Context())
		if !ok {
			return
		}
		ar := audit.ParseRoute(r.Method, route)
		meta, _ := json.Marshal(auditMetadata{Method: r.Method, Path: r.URL.Path, Status: sw.code})
		logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, string(meta))
	})
}
