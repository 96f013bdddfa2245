package server

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"chatwave/internal/realtime"
)

type directFrame struct {
	userID string
	frame  []byte
}

// Hub routes realtime events to connected users. Clients are keyed by user
// id; a second connection for the same user evicts the first with a
// forced-disconnect. The run loop is the only goroutine touching h.clients.
type Hub struct {
	clients map[string]*wsClient

	register   chan *wsClient
	unregister chan *wsClient
	direct     chan directFrame
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		direct:     make(chan directFrame, 64),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			if old, ok := h.clients[c.userID]; ok {
				old.enqueue(marshalEnvelope(realtime.EventForcedDisconnect, nil))
				close(old.send)
			}
			h.clients[c.userID] = c
			h.broadcastRoster()

		case c := <-h.unregister:
			if current, ok := h.clients[c.userID]; ok && current == c {
				delete(h.clients, c.userID)
				close(c.send)
				h.broadcastRoster()
			}

		case dm := <-h.direct:
			if c, ok := h.clients[dm.userID]; ok {
				c.enqueue(dm.frame)
			}

		case <-ctx.Done():
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*wsClient)
			return
		}
	}
}

// SendTo delivers one event to a single user. A user with no live
// connection silently misses the event; history fetch on reconnect
// catches them up.
func (h *Hub) SendTo(userID, event string, payload any) {
	h.direct <- directFrame{userID: userID, frame: marshalEnvelope(event, payload)}
}

// broadcastRoster pushes the full online list to every client. Wholesale
// snapshots keep clients from drifting on missed joins or leaves.
func (h *Hub) broadcastRoster() {
	roster := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		roster = append(roster, userID)
	}
	sort.Strings(roster)

	frame := marshalEnvelope(realtime.EventOnlineRoster, roster)
	for _, c := range h.clients {
		c.enqueue(frame)
	}
}

func marshalEnvelope(event string, payload any) []byte {
	env := realtime.Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("hub: marshal %s payload: %v", event, err)
			return nil
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		log.Printf("hub: marshal %s envelope: %v", event, err)
		return nil
	}
	return frame
}
