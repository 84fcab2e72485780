package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency, shared across every
// mounted route.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "artemis",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var RegisterTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "artemis",
		Subsystem: "registry",
		Name:      "register_total",
		Help:      "Total number of instance registration attempts by outcome.",
	},
	[]string{"outcome"},
)

var HeartbeatTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "artemis",
		Subsystem: "registry",
		Name:      "heartbeat_total",
		Help:      "Total number of heartbeat attempts by outcome.",
	},
	[]string{"outcome"},
)

var UnregisterTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "artemis",
		Subsystem: "registry",
		Name:      "unregister_total",
		Help:      "Total number of explicit unregister calls.",
	},
)

var EvictionTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "artemis",
		Subsystem: "registry",
		Name:      "eviction_total",
		Help:      "Total number of instances evicted for an expired lease.",
	},
)

var ActiveInstances = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "artemis",
		Subsystem: "registry",
		Name:      "active_instances",
		Help:      "Current number of instances with a live lease.",
	},
)

var DiscoveryQueriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "artemis",
		Subsystem: "discovery",
		Name:      "queries_total",
		Help:      "Total number of discovery queries by endpoint.",
	},
	[]string{"endpoint"},
)

var ReplicationBatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "artemis",
		Subsystem: "replication",
		Name:      "batches_total",
		Help:      "Total number of replication batches sent to peers by outcome.",
	},
	[]string{"peer", "outcome"},
)

var WebSocketSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "artemis",
		Subsystem: "ws",
		Name:      "sessions",
		Help:      "Current number of connected WebSocket sessions.",
	},
)

// NewMetricsRegistry creates a Prometheus registry with Go/process
// collectors plus every Artemis-specific metric above.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		RegisterTotal,
		HeartbeatTotal,
		UnregisterTotal,
		EvictionTotal,
		ActiveInstances,
		DiscoveryQueriesTotal,
		ReplicationBatchesTotal,
		WebSocketSessions,
	)
	return reg
}
