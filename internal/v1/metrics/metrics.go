// Package metrics declares the Prometheus series this hub exposes on
// /metrics. Metrics live in their own package, close to nothing else, so
// every component can import them without creating an import cycle.
//
// Naming convention: namespace_subsystem_name.
//   - namespace: signalhub
//   - subsystem: websocket, session, ice, circuit_breaker, bus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the current number of open WebSocket
	// connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalhub",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveSessions is the gauge for the number of live host sessions.
	// It is registered and exported, but no component of the hub sets it,
	// so it stays at 0.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalhub",
		Subsystem: "session",
		Name:      "sessions_active",
		Help:      "Current number of active host sessions",
	})

	// SessionViewers is the per-room gauge for attached viewers. It is
	// registered, but no component of the hub sets it, so it has no series.
	SessionViewers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signalhub",
		Subsystem: "session",
		Name:      "viewers_count",
		Help:      "Number of viewers currently attached to each room",
	}, []string{"room"})

	// FramesProcessed tracks every inbound frame the protocol handler
	// dispatched, labeled by wire type and outcome.
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalhub",
		Subsystem: "websocket",
		Name:      "frames_total",
		Help:      "Total inbound frames processed",
	}, []string{"type", "status"})

	// FrameProcessingDuration tracks time spent dispatching one frame.
	FrameProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signalhub",
		Subsystem: "websocket",
		Name:      "frame_processing_seconds",
		Help:      "Time spent processing one inbound frame",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"type"})

	// IceServersResolved tracks ice_servers requests, labeled "allowed"
	// when the resolved list is non-empty and "blocked" when it is empty
	// (whether the whitelist rejected the peer or no server is configured).
	IceServersResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalhub",
		Subsystem: "ice",
		Name:      "resolutions_total",
		Help:      "Total ice_servers resolutions, by whitelist outcome",
	}, []string{"outcome"})

	// CircuitBreakerState mirrors the bus circuit breaker's state: 0
	// closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signalhub",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the cross-instance bus circuit breaker",
	}, []string{"service"})

	// BusOperations tracks Redis pub/sub operations performed by the
	// optional cross-instance bus.
	BusOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalhub",
		Subsystem: "bus",
		Name:      "operations_total",
		Help:      "Total bus operations, by kind and outcome",
	}, []string{"operation", "status"})

	// CircuitBreakerFailures counts every bus call rejected because the
	// circuit breaker was open, labeled by the breaker's name.
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalhub",
		Subsystem: "circuit_breaker",
		Name:      "rejections_total",
		Help:      "Total calls rejected by an open circuit breaker",
	}, []string{"service"})
)

// IncConnection and DecConnection track ActiveConnections from the
// connection driver without exposing the gauge type to every caller.
func IncConnection() { ActiveConnections.Inc() }
func DecConnection() { ActiveConnections.Dec() }
