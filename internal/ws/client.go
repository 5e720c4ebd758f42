package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/netglass-io/Camera/internal/pipeline"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	// Commands are tiny; anything bigger is a misbehaving client.
	maxCommandSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The demo runs behind iframes on arbitrary origins.
		return true
	},
}

// Client is one event-channel subscription: a connection handle, a send
// queue drained by the write pump, and a read pump that parses commands.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	commands *pipeline.Commands

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	failures  atomic.Int32
}

// Handler upgrades HTTP requests to event-channel subscriptions.
type Handler struct {
	hub      *Hub
	commands *pipeline.Commands
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(hub *Hub, commands *pipeline.Commands) *Handler {
	return &Handler{hub: hub, commands: commands}
}

// ServeHTTP upgrades the connection and starts the client's pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	c := &Client{
		id:       uuid.NewString(),
		hub:      h.hub,
		conn:     conn,
		commands: h.commands,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}

	log.Printf("[WS] New connection %s from %s", c.id, r.RemoteAddr)
	h.hub.Register(c)

	go c.writePump()
	go c.readPump()
}

// enqueue queues a message without blocking and returns the consecutive
// failure count, which the hub uses to drop unreachable subscribers.
func (c *Client) enqueue(data []byte) int {
	select {
	case <-c.done:
		return 0
	case c.send <- data:
		c.failures.Store(0)
		return 0
	default:
		return int(c.failures.Add(1))
	}
}

// close releases the client's resources exactly once. Called by the hub on
// unregister; detachment is explicit, nothing waits for the collector.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send queue onto the connection and keeps it alive
// with pings. A write error ends the subscription.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump parses inbound commands and dispatches them. A command that
// fails validation is reported back to this client only; valid commands
// reach every subscriber through the resulting status broadcast.
func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error for client %s: %v", c.id, err)
			}
			return
		}
		c.handleCommand(raw)
	}
}

func (c *Client) handleCommand(raw []byte) {
	var envelope struct {
		Type pipeline.CommandKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.reject("malformed command")
		return
	}

	if err := c.commands.Dispatch(envelope.Type, raw); err != nil {
		if errors.Is(err, pipeline.ErrInvalidParameter) {
			c.reject(err.Error())
		} else {
			log.Printf("[WS] Command %s from client %s failed: %v", envelope.Type, c.id, err)
		}
	}
}

// reject sends an error status to the originating client only.
func (c *Client) reject(reason string) {
	msg := &StatusMessage{Type: "status", Message: reason}
	if data, err := json.Marshal(msg); err == nil {
		c.enqueue(data)
	}
}
