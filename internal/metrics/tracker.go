package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

var (
	trackerRequestBlockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "request_block_total",
		Help:      "Count of block request round trips.",
	}, []string{"network", "pattern", "status"})
	trackerRequestBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "request_block_duration_seconds",
		Help:      "Duration of a block request round trip, acknowledgement included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "pattern", "status"})
	trackerProcessBlockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "process_block_total",
		Help:      "Count of blocks scanned and checkpointed.",
	}, []string{"network", "pattern", "status"})
	trackerProcessBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "process_block_duration_seconds",
		Help:      "Duration of scanning and checkpointing one block.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "pattern", "status"})
	trackerLastProcessedHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "last_processed_height",
		Help:      "Height of the most recently checkpointed block.",
	}, []string{"network", "pattern"})
	trackerChainTipHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "chain_tip_height",
		Help:      "Best height reported by the node.",
	}, []string{"network", "pattern"})
	trackerUTXOCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "utxo_count",
		Help:      "Running count of unspent tracked outputs.",
	}, []string{"network", "pattern"})
	trackerUTXOValueSats = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "tracker",
		Name:      "utxo_value_sats",
		Help:      "Running satoshi value of unspent tracked outputs.",
	}, []string{"network", "pattern"})
)

// Tracker tracks metrics for the block tracking pipeline.
type Tracker struct {
	network model.Network
	pattern model.ScriptPattern
}

// NewTracker constructs a Tracker metrics collector.
func NewTracker(network model.Network, pattern model.ScriptPattern) *Tracker {
	if network == "" {
		network = "unknown"
	}
	if pattern == "" {
		pattern = "unknown"
	}
	return &Tracker{network: network, pattern: pattern}
}

// ObserveRequestBlock records one fetch-side request/ack round trip.
func (m Tracker) ObserveRequestBlock(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	trackerRequestBlockTotal.WithLabelValues(string(m.network), string(m.pattern), status).Inc()
	trackerRequestBlockDuration.WithLabelValues(string(m.network), string(m.pattern), status).
		Observe(time.Since(started).Seconds())
}

// ObserveProcessBlock records the outcome of scanning and checkpointing a block.
func (m Tracker) ObserveProcessBlock(err error, height uint64, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	trackerProcessBlockTotal.WithLabelValues(string(m.network), string(m.pattern), status).Inc()
	trackerProcessBlockDuration.WithLabelValues(string(m.network), string(m.pattern), status).
		Observe(time.Since(started).Seconds())
	if err == nil {
		trackerLastProcessedHeight.WithLabelValues(string(m.network), string(m.pattern)).Set(float64(height))
	}
}

// SetChainTip records the node's best height.
func (m Tracker) SetChainTip(height uint64) {
	trackerChainTipHeight.WithLabelValues(string(m.network), string(m.pattern)).Set(float64(height))
}

// SetRunningTotals records the tally after a checkpoint.
func (m Tracker) SetRunningTotals(outputs int64, sats float64) {
	trackerUTXOCount.WithLabelValues(string(m.network), string(m.pattern)).Set(float64(outputs))
	trackerUTXOValueSats.WithLabelValues(string(m.network), string(m.pattern)).Set(sats)
}
