package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type routerMetrics struct {
	activeConns     prometheus.Gauge
	registeredCodes prometheus.Gauge
	pendingCalls    prometheus.Gauge
	pendingRequests prometheus.Gauge
	friendships     prometheus.Gauge
	connTotal       prometheus.Counter
	displacements   prometheus.Counter
	droppedInput    prometheus.Counter
	sendFailures    prometheus.Counter
	cmdErrors       *prometheus.CounterVec
	cmdLatency      *prometheus.HistogramVec
	eventsSent      *prometheus.CounterVec
}

func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &routerMetrics{
		activeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ultracall_connections_active",
			Help: "Current number of open client connections.",
		}),
		registeredCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ultracall_codes_registered",
			Help: "Current number of codes bound to a connection.",
		}),
		pendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ultracall_calls_pending",
			Help: "Rings in progress awaiting answer, reject or hangup.",
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ultracall_friend_requests_pending",
			Help: "Outstanding friend requests not yet accepted or rejected.",
		}),
		friendships: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ultracall_friendships",
			Help: "Established friendship edges (each pair counted once).",
		}),
		connTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultracall_connections_total",
			Help: "Total client connections handled since start.",
		}),
		displacements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultracall_registrations_displaced_total",
			Help: "Registrations that displaced an older connection for the same code.",
		}),
		droppedInput: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultracall_envelopes_dropped_total",
			Help: "Inbound envelopes dropped as malformed or unrecognized.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultracall_send_failures_total",
			Help: "Outbound events that could not be queued or written.",
		}),
		cmdErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultracall_router_errors_total",
			Help: "Command validation or routing errors.",
		}, []string{"code"}),
		cmdLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ultracall_router_latency_seconds",
			Help:    "Latency for handling client commands.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"op"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultracall_events_sent_total",
			Help: "Outbound events queued to clients, by type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.activeConns,
		m.registeredCodes,
		m.pendingCalls,
		m.pendingRequests,
		m.friendships,
		m.connTotal,
		m.displacements,
		m.droppedInput,
		m.sendFailures,
		m.cmdErrors,
		m.cmdLatency,
		m.eventsSent,
	)
	return m
}

func (m *routerMetrics) incConn() {
	if m == nil {
		return
	}
	m.activeConns.Inc()
	m.connTotal.Inc()
}

func (m *routerMetrics) decConn() {
	if m == nil {
		return
	}
	m.activeConns.Dec()
}

func (m *routerMetrics) recordDisplacement() {
	if m == nil {
		return
	}
	m.displacements.Inc()
}

func (m *routerMetrics) recordDrop() {
	if m == nil {
		return
	}
	m.droppedInput.Inc()
}

func (m *routerMetrics) recordSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

func (m *routerMetrics) recordError(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.cmdErrors.WithLabelValues(code).Inc()
}

func (m *routerMetrics) observeLatency(op string, dur time.Duration) {
	if m == nil || op == "" {
		return
	}
	m.cmdLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *routerMetrics) recordEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsSent.WithLabelValues(eventType).Inc()
}

func (m *routerMetrics) setState(codes, pendingCalls, pendingRequests, friendships int) {
	if m == nil {
		return
	}
	m.registeredCodes.Set(float64(codes))
	m.pendingCalls.Set(float64(pendingCalls))
	m.pendingRequests.Set(float64(pendingRequests))
	m.friendships.Set(float64(friendships))
}
