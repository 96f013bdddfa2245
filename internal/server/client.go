package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"chatwave/internal/realtime"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one authenticated websocket connection. The read pump relays
// typing signals to their recipient; everything else a client needs goes
// through the REST API, so other inbound frames are dropped.
type wsClient struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func (c *wsClient) enqueue(frame []byte) {
	if frame == nil {
		return
	}
	select {
	case c.send <- frame:
	default:
		// slow consumer, drop the frame rather than stall the hub
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read from %s: %v", c.userID, err)
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Event {
		case realtime.EventTyping, realtime.EventStopTyping:
			c.relayTyping(env)
		}
	}
}

// relayTyping forwards a typing signal to its recipient, stamping the
// sender from the authenticated connection so clients cannot spoof it.
func (c *wsClient) relayTyping(env realtime.Envelope) {
	var sig realtime.TypingSignal
	if env.Data != nil {
		if err := json.Unmarshal(env.Data, &sig); err != nil {
			return
		}
	}
	if sig.ReceiverID == "" {
		return
	}
	c.hub.SendTo(sig.ReceiverID, env.Event, realtime.TypingSignal{SenderID: c.userID})
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// ServeWS upgrades an authenticated request and registers the connection
// with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade for %s: %v", userID, err)
		return
	}

	c := &wsClient{
		hub:    hub,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}
