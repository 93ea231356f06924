package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

var (
	notifierEventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "notifier",
		Name:      "events_delivered_total",
		Help:      "Count of checkpoint events delivered to subscribers.",
	}, []string{"network", "pattern"})
	notifierEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "notifier",
		Name:      "events_dropped_total",
		Help:      "Count of checkpoint events dropped on full subscriber buffers.",
	}, []string{"network", "pattern"})
	notifierSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "p2pk_tracker",
		Subsystem: "notifier",
		Name:      "subscribers",
		Help:      "Current number of event subscribers.",
	}, []string{"network", "pattern"})
)

// Notifier tracks metrics for checkpoint event fan-out.
type Notifier struct {
	network model.Network
	pattern model.ScriptPattern
}

// NewNotifier creates a Notifier metrics collector.
func NewNotifier(network model.Network, pattern model.ScriptPattern) *Notifier {
	if network == "" {
		network = "unknown"
	}
	if pattern == "" {
		pattern = "unknown"
	}
	return &Notifier{network: network, pattern: pattern}
}

// ObservePublish records the fan-out result of one published event.
func (m Notifier) ObservePublish(delivered, dropped int) {
	if delivered > 0 {
		notifierEventsDelivered.WithLabelValues(string(m.network), string(m.pattern)).Add(float64(delivered))
	}
	if dropped > 0 {
		notifierEventsDropped.WithLabelValues(string(m.network), string(m.pattern)).Add(float64(dropped))
	}
}

// SetSubscribers records the current subscriber count.
func (m Notifier) SetSubscribers(n int) {
	notifierSubscribers.WithLabelValues(string(m.network), string(m.pattern)).Set(float64(n))
}
