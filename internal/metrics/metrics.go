// Package metrics holds the console's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "push_bridge"

// Bridge call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeAbsent   = "absent"
	OutcomeError    = "error"
)

var (
	EventsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_ingested_total",
		Help:      "Notification events accepted by the console, by source.",
	}, []string{"source"})

	EventsGated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_gated_total",
		Help:      "Web foreground messages dropped because the user was logged out.",
	})

	SignalsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_received_total",
		Help:      "Native host signals received, by kind.",
	}, []string{"kind"})

	BridgeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bridge_calls_total",
		Help:      "Bridge handler invocations, by handler and outcome.",
	}, []string{"handler", "outcome"})

	ToastsShown = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "toasts_shown_total",
		Help:      "Toasts placed in the slot, by source.",
	}, []string{"source"})

	ConnectedPeers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_peers",
		Help:      "WebSocket peers currently attached, by role.",
	}, []string{"role"})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		EventsIngested,
		EventsGated,
		SignalsReceived,
		BridgeCalls,
		ToastsShown,
		ConnectedPeers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry exposes the collectors for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
