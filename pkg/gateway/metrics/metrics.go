// Package metrics exposes Prometheus counters for the identity, consent and
// relay flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	registry *prometheus.Registry

	VerificationsTotal *prometheus.CounterVec
	InvitesTotal       *prometheus.CounterVec

	UpdatesPublishedTotal  prometheus.Counter
	SnapshotsEmittedTotal  prometheus.Counter
	RelayConnectionsActive prometheus.Gauge

	MessengerSendsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all metrics registered on a
// fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gooftuber"
	}

	registry := prometheus.NewRegistry()

	verificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification attempts by result",
		},
		[]string{"result"},
	)

	invitesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_total",
			Help:      "Invite lifecycle events by action",
		},
		[]string{"action"},
	)

	updatesPublishedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_published_total",
			Help:      "Live state updates accepted from publishers",
		},
	)

	snapshotsEmittedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_emitted_total",
			Help:      "Snapshot frames sent to subscribers",
		},
	)

	relayConnectionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_connections_active",
			Help:      "Currently open relay websocket connections",
		},
	)

	messengerSendsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messenger_sends_total",
			Help:      "Direct message deliveries by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		verificationsTotal,
		invitesTotal,
		updatesPublishedTotal,
		snapshotsEmittedTotal,
		relayConnectionsActive,
		messengerSendsTotal,
	)

	return &Metrics{
		registry:               registry,
		VerificationsTotal:     verificationsTotal,
		InvitesTotal:           invitesTotal,
		UpdatesPublishedTotal:  updatesPublishedTotal,
		SnapshotsEmittedTotal:  snapshotsEmittedTotal,
		RelayConnectionsActive: relayConnectionsActive,
		MessengerSendsTotal:    messengerSendsTotal,
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordVerification records a code redemption attempt.
func (m *Metrics) RecordVerification(result string) {
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// RecordInvite records an invite lifecycle event.
func (m *Metrics) RecordInvite(action string) {
	m.InvitesTotal.WithLabelValues(action).Inc()
}

// RecordMessengerSend records a direct message delivery attempt.
func (m *Metrics) RecordMessengerSend(delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.MessengerSendsTotal.WithLabelValues(result).Inc()
}

// ConnectionOpened marks a relay connection as active until the returned
// function runs.
func (m *Metrics) ConnectionOpened() (closed func()) {
	m.RelayConnectionsActive.Inc()
	return func() { m.RelayConnectionsActive.Dec() }
}
