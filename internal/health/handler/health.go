package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"volunteer-platform/backend/internal/server/interceptors"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the authorization evaluator answers (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc is an additional named dependency check (e.g. Redis PING).
type CheckFunc func(ctx context.Context) error

// Report is the readiness result. Failed holds the names of failing checks.
type Report struct {
	Serving bool     `json:"serving"`
	Failed  []string `json:"failed,omitempty"`
}

// Checker runs readiness checks for Kubernetes, load balancers, and CI.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
	extra  map[string]CheckFunc
}

// NewChecker returns a Checker. pinger and policy may be nil; nil checks are skipped.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy, extra: map[string]CheckFunc{}}
}

// WithCheck adds a named check and returns c.
func (c *Checker) WithCheck(name string, fn CheckFunc) *Checker {
	c.extra[name] = fn
	return c
}

// Check runs every configured check with a short timeout. Failures are logged, never returned.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	rep := Report{Serving: true}
	fail := func(name string, err error) {
		log.Printf("health: %s check failed: %v", name, err)
		rep.Serving = false
		rep.Failed = append(rep.Failed, name)
	}
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			fail("database", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			fail("policy", err)
		}
	}
	for name, fn := range c.extra {
		if err := fn(ctx); err != nil {
			fail(name, err)
		}
	}
	return rep
}

// ServeHTTP answers GET /healthz with 200 when serving and 503 otherwise.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rep := c.Check(r.Context())
	status := http.StatusOK
	if !rep.Serving {
		status = http.StatusServiceUnavailable
	}
	interceptors.WriteJSON(w, status, rep)
}
