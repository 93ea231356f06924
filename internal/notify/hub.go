// Package notify fans out checkpoint events to in-process subscribers.
package notify

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

const defaultBufferSize = 16

type (
	Metrics interface {
		ObservePublish(delivered, dropped int)
		SetSubscribers(n int)
	}
)

// Hub delivers checkpoint events to subscribers without ever blocking the
// publisher. A subscriber whose buffer is full misses the event.
type Hub struct {
	logger  *zap.Logger
	metrics Metrics
	buffer  int

	mu     sync.Mutex
	subs   map[uint64]chan model.CheckpointEvent
	nextID uint64
	closed bool
}

type Option func(*Hub)

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func NewHub(metrics Metrics, logger *zap.Logger, opts ...Option) (*Hub, error) {
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	h := &Hub{
		logger:  logger.Named("checkpointHub"),
		metrics: metrics,
		buffer:  defaultBufferSize,
		subs:    make(map[uint64]chan model.CheckpointEvent),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Subscribe registers a listener. The returned cancel func removes the
// subscription and closes its channel. After Close the returned channel is
// already closed.
func (h *Hub) Subscribe() (<-chan model.CheckpointEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.CheckpointEvent, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.metrics.SetSubscribers(len(h.subs))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; !ok {
				return
			}
			delete(h.subs, id)
			close(ch)
			h.metrics.SetSubscribers(len(h.subs))
		})
	}
	return ch, cancel
}

// Publish offers the event to every subscriber, dropping it for those whose
// buffers are full.
func (h *Hub) Publish(ev model.CheckpointEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	var delivered, dropped int
	for _, ch := range h.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			dropped++
		}
	}
	h.metrics.ObservePublish(delivered, dropped)

	if dropped > 0 {
		h.logger.Debug("dropped checkpoint event for slow subscribers",
			zap.Uint64("height", ev.BlockHeight),
			zap.Int("dropped", dropped),
		)
	}
}

// Close closes every subscriber channel. Later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.metrics.SetSubscribers(0)
}
