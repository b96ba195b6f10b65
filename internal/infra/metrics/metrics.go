// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_total",
		Help: "Account lifecycle triggers by outcome.",
	}, []string{"trigger", "result"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Billing webhook deliveries by event type and outcome.",
	}, []string{"type", "result"})

	AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_checks_total",
		Help: "Module access decisions.",
	}, []string{"module", "allowed"})

	SSEConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "progress_stream_connections",
		Help: "Open progress stream connections.",
	})
)

func ObserveAccess(module string, allowed bool) {
	AccessChecks.WithLabelValues(module, strconv.FormatBool(allowed)).Inc()
}
