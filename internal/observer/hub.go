// Package observer fans accessibility events out to the sinks that care
// about them. Nodes publish on the input path, so delivery is asynchronous
// and never blocks the publisher.
package observer

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mj1618/a11y-chain/internal/chain"
	"github.com/mj1618/a11y-chain/internal/model"
)

// Stats counts events through a Hub.
type Stats struct {
	Published uint64 `yaml:"published" json:"published"`
	Delivered uint64 `yaml:"delivered" json:"delivered"`
	Dropped   uint64 `yaml:"dropped"   json:"dropped"`
}

// Hub is a chain.Observer that queues events and delivers them to its
// subscribers on its own goroutine. When the queue is full new events are
// dropped and counted.
type Hub struct {
	log   *slog.Logger
	queue chan model.AccessibilityEvent
	done  chan struct{}

	mu     sync.RWMutex // guards closed and sending on queue
	closed bool

	subMu  sync.RWMutex
	subs   map[int]chain.Observer
	nextID int

	ringMu sync.Mutex
	ring   []model.AccessibilityEvent
	head   int
	filled bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub starts a hub with a queue of buffer events that remembers the last
// recent events.
func NewHub(buffer, recent int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		log:   log.With("component", "observer"),
		queue: make(chan model.AccessibilityEvent, buffer),
		done:  make(chan struct{}),
		subs:  map[int]chain.Observer{},
	}
	if recent > 0 {
		h.ring = make([]model.AccessibilityEvent, recent)
	}
	go h.run()
	return h
}

// OnAccessibilityEvent queues ev without blocking.
func (h *Hub) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	h.published.Add(1)
	h.remember(ev)
	select {
	case h.queue <- ev:
	default:
		h.dropped.Add(1)
		h.log.Debug("event dropped", "type", ev.Type, "source", ev.Source)
	}
}

func (h *Hub) remember(ev model.AccessibilityEvent) {
	if len(h.ring) == 0 {
		return
	}
	h.ringMu.Lock()
	h.ring[h.head] = ev
	h.head = (h.head + 1) % len(h.ring)
	if h.head == 0 {
		h.filled = true
	}
	h.ringMu.Unlock()
}

// Recent returns up to n of the latest events, oldest first. n <= 0 returns
// everything remembered.
func (h *Hub) Recent(n int) []model.AccessibilityEvent {
	h.ringMu.Lock()
	defer h.ringMu.Unlock()
	var all []model.AccessibilityEvent
	if h.filled {
		all = append(all, h.ring[h.head:]...)
	}
	all = append(all, h.ring[:h.head]...)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// Subscribe adds o and returns a function that removes it.
func (h *Hub) Subscribe(o chain.Observer) (cancel func()) {
	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = o
	h.subMu.Unlock()
	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for ev := range h.queue {
		h.subMu.RLock()
		subs := make([]chain.Observer, 0, len(h.subs))
		for _, o := range h.subs {
			subs = append(subs, o)
		}
		h.subMu.RUnlock()
		for _, o := range subs {
			o.OnAccessibilityEvent(ev)
		}
		h.delivered.Add(1)
	}
}

// Stats returns the hub's counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Published: h.published.Load(),
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
	}
}

// Close stops accepting events, delivers what is queued and returns.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()
	<-h.done
	st := h.Stats()
	h.log.Debug("observer closed", "published", st.Published, "delivered", st.Delivered, "dropped", st.Dropped)
	return nil
}
