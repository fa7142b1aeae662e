package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/gesture"
)

func dialHub(t *testing.T, h *EventHub) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(h)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}
	for i := 0; i < 100 && h.Clients() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestEventHub_Broadcast(t *testing.T) {
	h := NewEventHub()
	defer h.Close()

	conn, done := dialHub(t, h)
	defer done()
	if h.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", h.Clients())
	}

	h.Broadcast(gesture.Outcome{Result: gesture.Result{Label: gesture.Fist, Score: 1}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "frame" || msg.Outcome.Result.Label != gesture.Fist {
		t.Errorf("message = %+v, want fist frame", msg)
	}
}

// A client whose writer is stuck must not hold up Broadcast; it is dropped
// once its queue fills.
func TestEventHub_SlowClientDropped(t *testing.T) {
	h := NewEventHub()
	stuck := &hubClient{send: make(chan []byte, sendBuffer)}
	h.add(stuck)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+10; i++ {
			h.Broadcast(gesture.Outcome{})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a client that never drains")
	}

	if h.Clients() != 0 {
		t.Errorf("Clients() = %d, want slow client dropped", h.Clients())
	}
	if len(stuck.send) != sendBuffer {
		t.Errorf("queued = %d, want %d", len(stuck.send), sendBuffer)
	}
	for range stuck.send {
	}

	// Removing an already dropped client is a no-op.
	h.remove(stuck)
}

func TestEventHub_CloseDisconnects(t *testing.T) {
	h := NewEventHub()
	conn, done := dialHub(t, h)
	defer done()

	h.Close()
	if h.Clients() != 0 {
		t.Errorf("Clients() = %d after Close", h.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after Close = %v, want normal closure", err)
	}
}
