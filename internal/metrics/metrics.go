// Package metrics exposes the node's runtime counters and gauges via a
// Prometheus registry (§11.4).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every counter and gauge this node publishes.
type Metrics struct {
	OperationsDispatched *prometheus.CounterVec
	HeartbeatsSent       prometheus.Counter
	HeartbeatsAccepted   prometheus.Counter
	HeartbeatsDropped    prometheus.Counter
	ExpirationsDeclared  prometheus.Counter
	MembershipSize       prometheus.Gauge
	SendQueueDepth       prometheus.Gauge
}

// New registers and returns a fresh Metrics set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ringkeep",
			Name:      "operations_dispatched_total",
			Help:      "Count of operations executed, labeled by tag.",
		}, []string{"tag"}),
		HeartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringkeep",
			Name:      "heartbeats_sent_total",
			Help:      "Count of heartbeats sent to successors.",
		}),
		HeartbeatsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringkeep",
			Name:      "heartbeats_accepted_total",
			Help:      "Count of inbound heartbeats that matched a known predecessor.",
		}),
		HeartbeatsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringkeep",
			Name:      "heartbeats_dropped_total",
			Help:      "Count of inbound heartbeats rejected or ignored.",
		}),
		ExpirationsDeclared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringkeep",
			Name:      "expirations_declared_total",
			Help:      "Count of predecessors declared failed by the expiry scan.",
		}),
		MembershipSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ringkeep",
			Name:      "membership_size",
			Help:      "Current known cluster membership size.",
		}),
		SendQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ringkeep",
			Name:      "send_queue_depth",
			Help:      "Current depth of the outbound operation send queue.",
		}),
	}

	reg.MustRegister(
		m.OperationsDispatched,
		m.HeartbeatsSent,
		m.HeartbeatsAccepted,
		m.HeartbeatsDropped,
		m.ExpirationsDeclared,
		m.MembershipSize,
		m.SendQueueDepth,
	)
	return m
}
