package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

var (
	checkpointRepositoryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "checkpoint_repository",
		Name:      "operations_total",
		Help:      "Count of checkpoint store operations.",
	}, []string{"operation", "engine", "network", "pattern", "status"})
	checkpointRepositoryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "checkpoint_repository",
		Name:      "operation_duration_seconds",
		Help:      "Duration of checkpoint store operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30},
	}, []string{"operation", "engine", "network", "pattern", "status"})
)

// CheckpointRepository tracks metrics for checkpoint store operations.
type CheckpointRepository struct {
	engine  string
	network model.Network
	pattern model.ScriptPattern
}

// NewCheckpointRepository creates a collector bound to one storage engine.
func NewCheckpointRepository(engine string, network model.Network, pattern model.ScriptPattern) *CheckpointRepository {
	if engine == "" {
		engine = "unknown"
	}
	if network == "" {
		network = "unknown"
	}
	if pattern == "" {
		pattern = "unknown"
	}
	return &CheckpointRepository{engine: engine, network: network, pattern: pattern}
}

// Observe records duration and status of a checkpoint store operation.
func (m CheckpointRepository) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	checkpointRepositoryRequestsTotal.
		WithLabelValues(operation, m.engine, string(m.network), string(m.pattern), status).Inc()
	checkpointRepositoryRequestDuration.
		WithLabelValues(operation, m.engine, string(m.network), string(m.pattern), status).
		Observe(time.Since(started).Seconds())
}
