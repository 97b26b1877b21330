// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"volunteer-platform/backend/internal/audit"
	identityhandler "volunteer-platform/backend/internal/identity/handler"
	membershiphandler "volunteer-platform/backend/internal/membership/handler"
	participationhandler "volunteer-platform/backend/internal/participation/handler"
	policyhandler "volunteer-platform/backend/internal/policy/handler"
	"volunteer-platform/backend/internal/server/interceptors"
	userhandler "volunteer-platform/backend/internal/user/handler"
)

// Route is one API endpoint. RateLimited routes are throttled per client IP.
type Route struct {
	Method      string
	Path        string
	Handle      httprouter.Handle
	RateLimited bool
}

// Handlers groups the API handlers. Nil groups are not mounted.
type Handlers struct {
	Identity       *identityhandler.Handler
	Users          *userhandler.Handler
	Managers       *membershiphandler.Handler
	Participations *participationhandler.Handler
	Permissions    *policyhandler.Handler
}

// Routes returns the API route table.
//
// Path → handler mapping:
//   - /auth/...                      → internal/identity/handler
//   - /users/:id                     → internal/user/handler
//   - /cells/:id/managers[/:user_id] → internal/membership/handler
//   - /participations[/:id]          → internal/participation/handler
//   - /permissions                   → internal/policy/handler
func (h Handlers) Routes() []Route {
	var routes []Route
	if h.Identity != nil {
		routes = append(routes,
			Route{Method: http.MethodPost, Path: "/auth/register", Handle: h.Identity.Register, RateLimited: true},
			Route{Method: http.MethodPost, Path: "/auth/activate", Handle: h.Identity.Activate},
			Route{Method: http.MethodPost, Path: "/auth/login", Handle: h.Identity.Login, RateLimited: true},
			Route{Method: http.MethodPost, Path: "/auth/logout", Handle: h.Identity.Logout},
			Route{Method: http.MethodPost, Path: "/auth/password-reset", Handle: h.Identity.RequestPasswordReset, RateLimited: true},
			Route{Method: http.MethodPost, Path: "/auth/password-reset/confirm", Handle: h.Identity.ConfirmPasswordReset},
			Route{Method: http.MethodPost, Path: "/auth/password-change", Handle: h.Identity.ChangePassword},
			Route{Method: http.MethodGet, Path: "/auth/me", Handle: h.Identity.Me},
			Route{Method: http.MethodGet, Path: "/auth/me/activity", Handle: h.Identity.MyActivity},
		)
	}
	if h.Users != nil {
		routes = append(routes,
			Route{Method: http.MethodGet, Path: "/users/:id", Handle: h.Users.Retrieve},
			Route{Method: http.MethodDelete, Path: "/users/:id", Handle: h.Users.Deactivate},
		)
	}
	if h.Managers != nil {
		routes = append(routes,
			Route{Method: http.MethodGet, Path: "/cells/:id/managers", Handle: h.Managers.List},
			Route{Method: http.MethodPut, Path: "/cells/:id/managers/:user_id", Handle: h.Managers.Add},
			Route{Method: http.MethodDelete, Path: "/cells/:id/managers/:user_id", Handle: h.Managers.Remove},
		)
	}
	if h.Participations != nil {
		routes = append(routes,
			Route{Method: http.MethodGet, Path: "/participations", Handle: h.Participations.List},
			Route{Method: http.MethodPost, Path: "/participations", Handle: h.Participations.Create},
			Route{Method: http.MethodGet, Path: "/participations/:id", Handle: h.Participations.Retrieve},
			Route{Method: http.MethodPatch, Path: "/participations/:id", Handle: h.Participations.Update},
			Route{Method: http.MethodDelete, Path: "/participations/:id", Handle: h.Participations.Delete},
		)
	}
	if h.Permissions != nil {
		routes = append(routes, Route{Method: http.MethodGet, Path: "/permissions", Handle: h.Permissions.Check})
	}
	return routes
}

// Options holds the cross-cutting pieces of the router. Sessions is required; the rest may be nil.
type Options struct {
	Sessions interceptors.SessionResolver
	Tracer   trace.Tracer
	Metrics  *interceptors.Metrics
	Gatherer prometheus.Gatherer
	Audit    audit.AuditLogger
	Limiter  *interceptors.RateLimiter
	// Health serves GET /healthz.
	Health http.Handler
	// Outbox serves GET /dev/outbox; set only outside production.
	Outbox http.Handler
}

// NewRouter mounts routes with per-route tracing, metrics, audit and rate limiting, then wraps
// the whole router with client IP extraction and session authentication.
func NewRouter(routes []Route, opts Options) http.Handler {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	router := httprouter.New()
	router.HandleMethodNotAllowed = true
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		interceptors.WriteError(w, http.StatusNotFound, interceptors.MsgNotFound)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		interceptors.WriteError(w, http.StatusMethodNotAllowed, interceptors.MsgMethodNotAllowed)
	})

	for _, rt := range routes {
		var h http.Handler = adapt(rt.Handle)
		if rt.RateLimited && opts.Limiter != nil {
			h = opts.Limiter.Middleware(h)
		}
		if opts.Audit != nil {
			h = interceptors.Audit(opts.Audit, rt.Path, h)
		}
		if opts.Metrics != nil {
			h = opts.Metrics.Instrument(rt.Path, h)
		}
		h = interceptors.Tracing(tracer, rt.Path, h)
		router.Handler(rt.Method, rt.Path, h)
	}

	if opts.Health != nil {
		router.Handler(http.MethodGet, "/healthz", opts.Health)
	}
	if opts.Gatherer != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Outbox != nil {
		router.Handler(http.MethodGet, "/dev/outbox", opts.Outbox)
	}

	return interceptors.ClientIPMiddleware(interceptors.Auth(opts.Sessions)(router))
}

// adapt turns a Handle into an http.Handler reading params from the request context, where
// httprouter puts them for handlers registered with Router.Handler.
func adapt(h httprouter.Handle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, httprouter.ParamsFromContext(r.Context()))
	})
}
