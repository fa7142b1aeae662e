package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/gesture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// writeTimeout bounds a single websocket write so a stuck client cannot
// stall the pipeline.
const writeTimeout = time.Second

// Message is what EventHub sends for each frame outcome.
type Message struct {
	Type      string          `json:"type"`
	Outcome   gesture.Outcome `json:"outcome"`
	Timestamp int64           `json:"timestamp"`
}

// messageType tags a message by the most significant thing that happened.
func messageType(out gesture.Outcome) string {
	switch {
	case out.Fired != nil:
		return "fired"
	case out.Confirmed != nil:
		return "confirmed"
	default:
		return "frame"
	}
}

// sendBuffer is how many messages may queue for one client before it is
// dropped as too slow.
const sendBuffer = 32

// hubClient is one websocket connection with its own outgoing queue.
type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// writeLoop drains send until it is closed or a write fails.
func (c *hubClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("websocket write error: %v", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

// EventHub broadcasts frame outcomes to websocket clients. Each client has
// a buffered queue and a writer goroutine, so Broadcast never waits on the
// network.
type EventHub struct {
	clients map[*hubClient]struct{}
	mu      sync.Mutex
}

// NewEventHub creates an empty EventHub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*hubClient]struct{})}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go c.writeLoop()
	defer h.remove(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *EventHub) add(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// remove unregisters c and closes its queue. It is safe to call more than
// once.
func (h *EventHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop must be called with mu held.
func (h *EventHub) drop(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues out for every connected client. A client whose queue is
// full is dropped.
func (h *EventHub) Broadcast(out gesture.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(Message{
		Type:      messageType(out),
		Outcome:   out,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("websocket client too slow, dropping")
			h.drop(c)
		}
	}
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}
