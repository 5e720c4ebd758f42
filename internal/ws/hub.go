package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/netglass-io/Camera/internal/pipeline"
)

const (
	// sendBufferSize bounds how far one client may fall behind before its
	// messages start dropping.
	sendBufferSize = 32
	// maxSendFailures is how many consecutive undeliverable messages a
	// subscriber gets before it is dropped as unreachable.
	maxSendFailures = 8
)

// StaticInfo is the fixed part of the connect-time status snapshot.
type StaticInfo struct {
	CameraResolution string
	TargetFPS        int
}

// Hub owns the event-channel subscriber registry. Broadcast never blocks
// the caller: each client has its own buffered send queue drained by its
// write pump, and a client whose queue stays full is unregistered.
type Hub struct {
	state *pipeline.State
	info  StaticInfo

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub. state backs the status snapshot sent to
// every newly subscribed client.
func NewHub(state *pipeline.State, info StaticInfo) *Hub {
	return &Hub{
		state:   state,
		info:    info,
		clients: make(map[*Client]bool),
	}
}

// Register adds a client and immediately queues the full current-state
// snapshot so a late joiner is never without processing state.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	if data, err := json.Marshal(h.statusSnapshot()); err == nil {
		c.enqueue(data)
	}
	log.Printf("[WS] Client %s registered (total: %d)", c.id, total)
}

// Unregister removes a client and releases its resources. Idempotent.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	log.Printf("[WS] Client %s unregistered (remaining: %d)", c.id, remaining)
}

// ClientCount returns the number of live subscriptions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast marshals msg once and queues it to every live client. Delivery
// to a slow client drops rather than delays; a client that keeps failing
// is unregistered so the rest are unaffected.
func (h *Hub) Broadcast(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Broadcast marshal error: %v", err)
		return
	}

	// Deliver over a snapshot of the registry so no lock is held during
	// per-client work.
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.enqueue(data) > maxSendFailures {
			log.Printf("[WS] Client %s unreachable, dropping", c.id)
			h.Unregister(c)
		}
	}
}

// BroadcastStatus implements pipeline.StatusSink.
func (h *Hub) BroadcastStatus(u pipeline.StatusUpdate) {
	h.Broadcast(NewStatusMessage(u))
}

// statusSnapshot builds the connect-time status message from the shared
// state plus the static camera info.
func (h *Hub) statusSnapshot() *StatusMessage {
	snap := h.state.Snapshot()
	connected := true
	return &StatusMessage{
		Type:             "status",
		Connected:        &connected,
		DetectionEnabled: &snap.DetectionEnabled,
		Sensitivity:      &snap.SensitivityThreshold,
		CalibrationEpoch: &snap.CalibrationEpoch,
		CameraResolution: h.info.CameraResolution,
		TargetFPS:        h.info.TargetFPS,
	}
}

var _ pipeline.StatusSink = (*Hub)(nil)
