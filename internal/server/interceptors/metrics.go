package interceptors

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"volunteer-platform/backend/internal/policy/engine"
)

// Metrics holds the HTTP collectors. Labels use the route pattern, never the raw path.
type Metrics struct {
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	authz    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authz: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by class, action and outcome.",
		}, []string{"class", "action", "outcome"}),
	}
	reg.MustRegister(m.inFlight, m.requests, m.duration, m.authz)
	return m
}

// Instrument wraps next and records request count and latency under route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		status := strconv.Itoa(sw.code)
		m.duration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, route, status).Inc()
	})
}

// ObserveDecision counts one authorization outcome ("allow" or "deny").
func (m *Metrics) ObserveDecision(class, action string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.authz.WithLabelValues(class, action, outcome).Inc()
}

// statusWriter records the response code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// MeteredDecider counts every decision made through the wrapped Decider.
type MeteredDecider struct {
	Decider Decider
	Metrics *Metrics
}

// Decide delegates and records the outcome.
func (d MeteredDecider) Decide(ctx context.Context, req engine.Request) (engine.Decision, error) {
	dec, err := d.Decider.Decide(ctx, req)
	d.Metrics.ObserveDecision(string(req.Class), string(req.Action), dec.Allowed)
	return dec, err
}
