// Package metrics exposes Prometheus collectors for venue sessions and the
// distribution server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xfeed/internal/domain"
)

var (
	// Venue session metrics
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "venue",
			Name:      "updates_total",
			Help:      "Normalized price updates produced per venue",
		},
		[]string{"venue"},
	)

	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "venue",
			Name:      "parse_errors_total",
			Help:      "Ticker messages dropped because a numeric field was malformed",
		},
		[]string{"venue"},
	)

	ReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "venue",
			Name:      "reconnects_total",
			Help:      "Transitions into the reconnecting state",
		},
		[]string{"venue"},
	)

	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xfeed",
			Subsystem: "venue",
			Name:      "session_state",
			Help:      "Current lifecycle state of the venue session (numeric)",
		},
		[]string{"venue"},
	)

	// Distribution metrics
	DistributionClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xfeed",
			Subsystem: "distribution",
			Name:      "clients",
			Help:      "Currently registered downstream consumers",
		},
	)

	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "distribution",
			Name:      "broadcasts_total",
			Help:      "Broadcast calls",
		},
	)

	ClientsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "distribution",
			Name:      "clients_dropped_total",
			Help:      "Consumers removed after a failed write",
		},
	)

	// Secondary sinks
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Failed publishes to secondary sinks",
		},
		[]string{"sink"},
	)

	SinkDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xfeed",
			Subsystem: "sink",
			Name:      "dropped_total",
			Help:      "Items dropped because a sink queue was full",
		},
		[]string{"sink"},
	)
)

// Handler serves the default registry in text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SessionObserver mirrors session transitions into gauges and counters.
type SessionObserver struct{}

func (SessionObserver) OnSessionEvent(ev domain.SessionEvent) {
	SessionState.WithLabelValues(ev.Venue).Set(float64(ev.To))
	if ev.To == domain.StateReconnecting {
		ReconnectsTotal.WithLabelValues(ev.Venue).Inc()
	}
}
