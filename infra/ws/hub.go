// Package ws broadcasts playback frames to websocket clients.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/playback"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

const (
	writeWait = 5 * time.Second
	// frames queued per client before it starts missing some
	clientBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub implements playback.FrameSink. Each client has its own buffered
// subscription; a client too slow to drain it misses frames instead of
// holding up the others.
type Hub struct {
	bus *eventbus.TypedBus[[]byte]
	log logger.Logger

	mu      sync.RWMutex
	last    []byte
	clients int
}

var _ playback.FrameSink = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{bus: eventbus.NewTyped[[]byte](eventbus.WithBuffer(clientBuffer)), log: log}
}

// PublishFrame encodes f and queues it for every connected client.
func (h *Hub) PublishFrame(f playback.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.last = data
	h.mu.Unlock()
	h.bus.Publish(data)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away. A new client first receives the most recent frame.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("ws upgrade error: %v", err)
		return
	}
	sub := h.bus.Subscribe()
	h.mu.Lock()
	h.clients++
	last := h.last
	h.mu.Unlock()

	closed := make(chan struct{})
	go h.readPump(conn, closed)
	h.writePump(conn, sub, last, closed)

	h.bus.Unsubscribe(sub)
	h.mu.Lock()
	h.clients--
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) writePump(conn *websocket.Conn, sub <-chan []byte, last []byte, closed <-chan struct{}) {
	if last != nil {
		if err := write(conn, last); err != nil {
			return
		}
	}
	for {
		select {
		case <-closed:
			return
		case data, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if err := write(conn, data); err != nil {
				h.log.Debugf("ws write: %v", err)
				return
			}
		}
	}
}

// readPump discards client messages and reports when the connection ends.
func (h *Hub) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func write(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close disconnects every client.
func (h *Hub) Close() { h.bus.Close() }
