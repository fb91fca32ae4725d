// Package metrics holds the pipeline's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickrouter_ticks_received_total",
		Help: "Ticks received from each source adapter.",
	}, []string{"source"})

	TicksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickrouter_ticks_rejected_total",
		Help: "Ticks dropped by validation, by rejection reason.",
	}, []string{"reason"})

	TicksRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickrouter_ticks_routed_total",
		Help: "Routed ticks emitted, by routing status.",
	}, []string{"status"})

	Failovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickrouter_failovers_total",
		Help: "Switches from primary to fallback source.",
	})

	Failbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickrouter_failbacks_total",
		Help: "Switches back from fallback to primary source.",
	})

	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickrouter_dropped_deliveries_total",
		Help: "Ticks discarded because a subscriber buffer was full.",
	})

	SnapshotSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickrouter_snapshot_save_failures_total",
		Help: "Persistence sink save failures (logged and dropped).",
	})
)
