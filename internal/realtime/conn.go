package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Handler consumes the payload of one inbound event.
type Handler func(data json.RawMessage)

// Conn owns the single persistent connection of a session. All other
// components read events through handlers registered here; none of them
// ever hold the websocket themselves.
//
// Connect while already connected is a no-op, not an error, so a session
// can never end up with two live connections. Handlers are keyed by event
// name and re-registration replaces, so reconnecting never double-fires.
type Conn struct {
	url              string
	handshakeTimeout time.Duration

	mu       sync.Mutex
	ws       *websocket.Conn
	handlers map[string]Handler

	// writes are serialized separately; timer goroutines emit typing
	// signals concurrently with user-driven emits
	writeMu sync.Mutex
}

func NewConn(url string, handshakeTimeout time.Duration) *Conn {
	return &Conn{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		handlers:         make(map[string]Handler),
	}
}

// On registers the handler for an event name, replacing any previous one.
func (c *Conn) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

// Connect dials the event stream with the session's token. No-op when a
// connection is already live.
func (c *Conn) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	ws, resp, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			log.Printf("websocket dial failed: %v, status: %s", err, resp.Status)
		}
		return err
	}

	c.ws = ws
	go c.readPump(ws)
	return nil
}

// Disconnect closes the active connection and clears the handle. Safe to
// call when already disconnected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
}

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// Emit writes one event to the server.
func (c *Conn) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		return websocket.ErrCloseSent
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteJSON(&Envelope{Event: event, Data: data})
}

func (c *Conn) readPump(ws *websocket.Conn) {
	defer c.dropIfCurrent(ws)

	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			return
		}

		if env.Event == EventForcedDisconnect {
			// server kicked us: tear down without erroring, then let an
			// interested handler observe it
			c.dropIfCurrent(ws)
			c.dispatch(env.Event, env.Data)
			return
		}

		c.dispatch(env.Event, env.Data)
	}
}

func (c *Conn) dispatch(event string, data json.RawMessage) {
	c.mu.Lock()
	h := c.handlers[event]
	c.mu.Unlock()

	if h != nil {
		h(data)
	}
}

// dropIfCurrent closes ws and clears the handle only when ws is still the
// active connection; a stale pump must not tear down its successor.
func (c *Conn) dropIfCurrent(ws *websocket.Conn) {
	c.mu.Lock()
	current := c.ws == ws
	if current {
		c.ws = nil
	}
	c.mu.Unlock()

	ws.Close()
}
