package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the dashboard.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	csrfFetches     *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	accessDecisions *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec
}

// NewMetrics initialises the registry and the dashboard metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	csrfFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_csrf_token_requests_total",
		Help: "Backend CSRF token lookups by outcome (hit, fetched, error, cancelled, unavailable).",
	}, []string{"outcome"})
	sessionEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_session_events_total",
		Help: "Session lifecycle events.",
	}, []string{"event"})
	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_access_decisions_total",
		Help: "Access guard decisions by view and outcome.",
	}, []string{"view", "outcome"})
	backendErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_backend_errors_total",
		Help: "Backend calls that failed, by kind.",
	}, []string{"kind"})
	registry.MustRegister(
		requests, duration, csrfFetches, sessionEvents, accessDecisions, backendErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// Pre-create series so dashboards and alerts see zeros instead of gaps.
	for _, outcome := range []string{"hit", "fetched", "error", "cancelled", "unavailable"} {
		csrfFetches.WithLabelValues(outcome)
	}
	for _, event := range []string{"bootstrap_authenticated", "bootstrap_anonymous", "login_success", "login_failure", "logout", "expired"} {
		sessionEvents.WithLabelValues(event)
	}
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		csrfFetches:     csrfFetches,
		sessionEvents:   sessionEvents,
		accessDecisions: accessDecisions,
		backendErrors:   backendErrors,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCSRF counts a token cache outcome.
func (m *Metrics) ObserveCSRF(outcome string) {
	if m == nil {
		return
	}
	m.csrfFetches.WithLabelValues(outcome).Inc()
}

// ObserveSession counts a session lifecycle event.
func (m *Metrics) ObserveSession(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}

// ObserveAccess counts an access decision.
func (m *Metrics) ObserveAccess(view, outcome string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(view, outcome).Inc()
}

// ObserveBackendError counts a failed backend call.
func (m *Metrics) ObserveBackendError(kind string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(kind).Inc()
}

// TrackClients exposes the live client bundle count.
func (m *Metrics) TrackClients(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dashboard_client_bundles",
		Help: "Browser sessions with a live backend client in memory.",
	}, func() float64 { return float64(count()) }))
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
