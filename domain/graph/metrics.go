package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncsTotal counts projection rebuild attempts, manual resyncs
	// included.
	SyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_syncs_total",
		Help: "Total number of graph projection rebuilds attempted",
	})

	// SyncFailuresTotal counts rebuild attempts that failed.
	SyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_sync_failures_total",
		Help: "Total number of graph projection rebuilds that failed",
	})
)
