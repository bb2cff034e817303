// Package broadcast fans messages out to any number of local subscribers
// without ever blocking the producer.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"keyoverlay/internal/protocol"
)

// SendBuffer is the per-subscriber outbound buffer size.
const SendBuffer = 256

// Subscriber is one registered receiver. Its channel is closed when the
// subscriber is unregistered or dropped for falling behind.
type Subscriber struct {
	ID   uuid.UUID
	send chan []byte
}

// Messages returns the encoded messages addressed to this subscriber, in
// publish order.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Hub is the subscriber registry plus the queue that decouples the capture
// thread from delivery.
type Hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*Subscriber
	onCount func(int)

	queue   chan string
	dropped atomic.Uint64
}

// NewHub creates a hub whose combo queue holds up to queueSize entries.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Hub{
		clients: make(map[uuid.UUID]*Subscriber),
		queue:   make(chan string, queueSize),
	}
}

// OnCountChanged registers fn to be called with the new subscriber count
// after every register, unregister or drop. fn runs without the registry
// lock held.
func (h *Hub) OnCountChanged(fn func(int)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

// Register adds a subscriber. greeting messages are queued to it before it
// can see any published message.
func (h *Hub) Register(greeting ...protocol.Message) *Subscriber {
	sub := &Subscriber{ID: uuid.New(), send: make(chan []byte, SendBuffer)}
	for _, msg := range greeting {
		if data, err := json.Marshal(msg); err == nil {
			sub.send <- data
		}
	}

	h.mu.Lock()
	h.clients[sub.ID] = sub
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()

	log.Info().Str("component", "broadcast").Str("id", sub.ID.String()).Int("clients", n).Msg("Subscriber registered")
	if fn != nil {
		fn(n)
	}
	return sub
}

// Unregister removes the subscriber with id. Unknown ids are ignored.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(sub.send)
	}
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()

	if !ok {
		return
	}
	log.Info().Str("component", "broadcast").Str("id", id.String()).Int("clients", n).Msg("Subscriber unregistered")
	if fn != nil {
		fn(n)
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish delivers msg to every subscriber. A subscriber whose buffer is
// full is dropped rather than waited for.
func (h *Hub) Publish(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Str("component", "broadcast").Err(err).Msg("Failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	var dropped []uuid.UUID
	for id, sub := range h.clients {
		select {
		case sub.send <- data:
		default:
			close(sub.send)
			delete(h.clients, id)
			dropped = append(dropped, id)
		}
	}
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()

	if len(dropped) == 0 {
		return
	}
	for _, id := range dropped {
		log.Warn().Str("component", "broadcast").Str("id", id.String()).Msg("Dropped slow subscriber")
	}
	if fn != nil {
		fn(n)
	}
}

// Enqueue hands a combo to the broadcaster loop without blocking. It
// reports false when the queue is full and the combo was discarded.
func (h *Hub) Enqueue(combo string) bool {
	select {
	case h.queue <- combo:
		return true
	default:
		if n := h.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn().Str("component", "broadcast").Uint64("dropped", n).Msg("Combo queue full, dropping")
		}
		return false
	}
}

// Dropped returns how many combos Enqueue has discarded.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Run publishes queued combos as keypress messages until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case combo := <-h.queue:
			h.Publish(protocol.KeyPress(combo))
		}
	}
}
