package bundles

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestsTotal counts successful document writes by operation
	// ("created" or "updated").
	IngestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bundle_ingests_total",
		Help: "Total number of bundle documents written, by operation",
	}, []string{"operation"})
)
