package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "panel"

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	ControlRequests *prometheus.CounterVec
	Polls           *prometheus.CounterVec
	PollDuration    prometheus.Histogram
	PollQueries     prometheus.Histogram
	AuthAttempts    *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ControlRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_requests_total",
			Help:      "Requests sent to the control API by action and result.",
		}, []string{"action", "result"}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Finished status polls by target and stop reason.",
		}, []string{"target", "reason"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time from the first poll tick to the end of the poll.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900},
		}),
		PollQueries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_queries",
			Help:      "Status queries issued per poll.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Sign-in and challenge attempts by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Panel sessions currently held in memory.",
		}),
	}
	reg.MustRegister(
		m.ControlRequests,
		m.Polls,
		m.PollDuration,
		m.PollQueries,
		m.AuthAttempts,
		m.ActiveSessions,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveControlRequest counts one control API call. Safe on a nil receiver.
func (m *Metrics) ObserveControlRequest(action string, err error) {
	if m == nil {
		return
	}
	m.ControlRequests.WithLabelValues(action, resultLabel(err)).Inc()
}

// ObservePoll records a finished poll. Safe on a nil receiver.
func (m *Metrics) ObservePoll(target, reason string, queries int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(target, reason).Inc()
	m.PollQueries.Observe(float64(queries))
	m.PollDuration.Observe(elapsed.Seconds())
}

// ObserveAuth counts one authentication outcome. Safe on a nil receiver.
func (m *Metrics) ObserveAuth(outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(outcome).Inc()
}

// SetActiveSessions updates the session gauge. Safe on a nil receiver.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
