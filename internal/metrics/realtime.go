package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_active_connections",
		Help:      "Number of open websocket connections",
	})

	eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_events_total",
		Help:      "Inbound websocket events by type and outcome",
	}, []string{"event", "outcome"})

	framesBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_frames_sent_total",
		Help:      "Outbound frames queued for delivery",
	}, []string{"event"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_frames_dropped_total",
		Help:      "Outbound frames dropped because the recipient was slow or gone",
	}, []string{"event"})

	sessionResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_resets_total",
		Help:      "Sessions removed by resets",
	})
)

func ConnectionOpened() { activeConnections.Inc() }
func ConnectionClosed() { activeConnections.Dec() }

func ObserveEvent(event, outcome string) {
	eventsHandled.WithLabelValues(event, outcome).Inc()
}

func ObserveBroadcast(event string, sent, dropped int) {
	if sent > 0 {
		framesBroadcast.WithLabelValues(event).Add(float64(sent))
	}
	if dropped > 0 {
		framesDropped.WithLabelValues(event).Add(float64(dropped))
	}
}

func ObserveReset(deleted int64) {
	if deleted > 0 {
		sessionResets.Add(float64(deleted))
	}
}
