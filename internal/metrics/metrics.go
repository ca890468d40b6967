// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveRooms is the number of rooms with at least one live connection.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "collab",
		Name:      "active_rooms",
		Help:      "Rooms with at least one connected participant.",
	})

	// ActiveConnections is the number of registered transport sessions.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "collab",
		Name:      "active_connections",
		Help:      "Registered WebSocket sessions.",
	})

	// EditBatchesApplied counts accepted edit batches.
	EditBatchesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collab",
		Name:      "edit_batches_applied_total",
		Help:      "Edit batches accepted and persisted.",
	})

	// ResyncsIssued counts full resynchronizations served to stale clients.
	ResyncsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collab",
		Name:      "resyncs_issued_total",
		Help:      "Full resync payloads sent to clients outside the replay window.",
	})

	// BroadcastsSent counts room fan-out messages after exclusion.
	BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collab",
		Name:      "broadcasts_sent_total",
		Help:      "Messages delivered to room participants.",
	})

	// MessagesDropped counts inbound or outbound messages dropped because a
	// queue was full or a payload was malformed.
	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "collab",
		Name:      "messages_dropped_total",
		Help:      "Messages dropped due to full queues or malformed payloads.",
	})
)
