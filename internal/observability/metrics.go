package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkup_shell"

// Metrics holds the collectors of one shell process. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
	redirects       *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	screenRequests  *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Requests sent to the LinkUp backend.",
			},
			[]string{"method", "status"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Round-trip time of LinkUp backend requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method"},
		),
		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "auth_failures_total",
				Help:      "Backend responses reporting an invalid or expired session.",
			},
			[]string{"kind"},
		),
		redirects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "interceptor_redirects_total",
				Help:      "Auth-failure redirects requested or suppressed by the interceptor.",
			},
			[]string{"result"},
		),
		guardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "guard",
				Name:      "decisions_total",
				Help:      "Route guard decisions by guard kind.",
			},
			[]string{"guard", "decision"},
		),
		screenRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Requests served by the web shell.",
			},
			[]string{"method", "status"},
		),
		sessionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "events_total",
				Help:      "Session store transitions by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.backendRequests,
		m.backendDuration,
		m.authFailures,
		m.redirects,
		m.guardDecisions,
		m.screenRequests,
		m.sessionEvents,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveBackendRequest records one backend round trip. status is 0 when the
// request failed before a response arrived.
func (m *Metrics) ObserveBackendRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.backendRequests.WithLabelValues(method, label).Inc()
	m.backendDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) AuthFailure(kind string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) InterceptorRedirect(result string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(result).Inc()
}

func (m *Metrics) GuardDecision(guard, decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(guard, decision).Inc()
}

func (m *Metrics) ScreenRequest(method string, status int) {
	if m == nil {
		return
	}
	m.screenRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) SessionEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(kind, outcome).Inc()
}
