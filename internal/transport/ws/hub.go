package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"mapsmith.ai/internal/protocol"
	"mapsmith.ai/internal/sim/scheduler"
)

// Hub tracks connected operators and fans scheduler output out to them.
type Hub struct {
	log *log.Logger

	mu      sync.RWMutex
	clients map[string]*Outbox
	nextID  atomic.Uint64
	dropped atomic.Uint64
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{log: logger, clients: map[string]*Outbox{}}
}

// Outbox is one client's outbound queues. FRAME and STATUS are latest-wins
// and may be evicted; NOTIFY and ERROR are never evicted and are written
// first.
type Outbox struct {
	notices chan []byte
	latest  chan []byte
	dropped *atomic.Uint64
}

// Register allocates an operator id with outbound queues of size queue.
func (h *Hub) Register(queue int) (string, *Outbox) {
	id := fmt.Sprintf("OP%d", h.nextID.Add(1))
	out := &Outbox{
		notices: make(chan []byte, queue),
		latest:  make(chan []byte, queue),
		dropped: &h.dropped,
	}
	h.mu.Lock()
	h.clients[id] = out
	h.mu.Unlock()
	return id, out
}

func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts outbound messages lost to full client queues, including
// evicted frames and status lines.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) Frame(tick uint64, markers []scheduler.Marker) {
	msg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Markers:         make([]protocol.MarkerMsg, 0, len(markers)),
	}
	for _, m := range markers {
		msg.Markers = append(msg.Markers, protocol.MarkerMsg{Pos: m.Pos.Array(), Style: string(m.Style)})
	}
	b, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, out := range h.clients {
		out.pushLatest(b)
	}
}

func (h *Hub) Status(operator, text string) {
	b, ok := h.encode(protocol.StatusMsg{Type: protocol.TypeStatus, ProtocolVersion: protocol.Version, Text: text})
	if !ok {
		return
	}
	h.sendTo(operator, b, true)
}

func (h *Hub) Notify(operator, text string) {
	b, ok := h.encode(protocol.NotifyMsg{Type: protocol.TypeNotify, ProtocolVersion: protocol.Version, Text: text})
	if !ok {
		return
	}
	h.sendTo(operator, b, false)
}

func (h *Hub) sendTo(operator string, b []byte, latest bool) {
	h.mu.RLock()
	out, ok := h.clients[operator]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if latest {
		out.pushLatest(b)
		return
	}
	out.push(b)
}

func (h *Hub) encode(v any) ([]byte, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		if h.log != nil {
			h.log.Printf("ws: encode %T: %v", v, err)
		}
		return nil, false
	}
	return b, true
}

// push enqueues a message that must not be evicted. It is dropped only when
// the notice queue itself is full.
func (o *Outbox) push(b []byte) {
	select {
	case o.notices <- b:
	default:
		o.dropped.Add(1)
	}
}

// pushLatest enqueues b, evicting the oldest queued frame or status line if
// full.
func (o *Outbox) pushLatest(b []byte) {
	select {
	case o.latest <- b:
		return
	default:
	}
	select {
	case <-o.latest:
		o.dropped.Add(1)
	default:
	}
	select {
	case o.latest <- b:
	default:
		o.dropped.Add(1)
	}
}

// Next blocks until a message is queued or ctx is done. Queued notices go
// out before any frame or status line.
func (o *Outbox) Next(ctx context.Context) ([]byte, bool) {
	select {
	case b := <-o.notices:
		return b, true
	default:
	}
	select {
	case <-ctx.Done():
		return nil, false
	case b := <-o.notices:
		return b, true
	case b := <-o.latest:
		return b, true
	}
}
