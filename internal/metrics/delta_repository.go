package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

var (
	deltaRepositoryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "delta_repository",
		Name:      "operations_total",
		Help:      "Count of delta store operations.",
	}, []string{"operation", "network", "pattern", "status"})
	deltaRepositoryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "delta_repository",
		Name:      "operation_duration_seconds",
		Help:      "Duration of delta store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "network", "pattern", "status"})
)

// DeltaRepository tracks metrics for delta store operations.
type DeltaRepository struct {
	network model.Network
	pattern model.ScriptPattern
}

// NewDeltaRepository creates a DeltaRepository metrics collector.
func NewDeltaRepository(network model.Network, pattern model.ScriptPattern) *DeltaRepository {
	if network == "" {
		network = "unknown"
	}
	if pattern == "" {
		pattern = "unknown"
	}
	return &DeltaRepository{network: network, pattern: pattern}
}

// Observe records duration and status of a delta store operation.
func (m DeltaRepository) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	deltaRepositoryRequestsTotal.
		WithLabelValues(operation, string(m.network), string(m.pattern), status).Inc()
	deltaRepositoryRequestDuration.
		WithLabelValues(operation, string(m.network), string(m.pattern), status).
		Observe(time.Since(started).Seconds())
}
