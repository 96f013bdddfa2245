package typing

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"chatwave/internal/realtime"
)

// Indicator owns the inbound half: a per-peer typing flag driven by
// typing / stop-typing events, last write wins. Only events from the
// currently selected peer are recorded.
//
// The protocol itself has no inbound timeout; a lost stop-typing would pin
// the flag forever. expiry clears a stale flag after that much inbound
// silence. Zero disables it and restores the protocol's literal behavior.
type Indicator struct {
	selected func() string
	expiry   time.Duration

	mu     sync.Mutex
	typing map[string]bool
	timers map[string]*time.Timer
}

// NewIndicator builds an indicator; selected reports the currently open
// peer so events for everyone else can be ignored.
func NewIndicator(selected func() string, expiry time.Duration) *Indicator {
	return &Indicator{
		selected: selected,
		expiry:   expiry,
		typing:   make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}
}

// Attach subscribes the indicator to typing events on the connection.
func (i *Indicator) Attach(conn *realtime.Conn) {
	conn.On(realtime.EventTyping, func(data json.RawMessage) {
		if sig, ok := decodeSignal(data); ok {
			i.Apply(sig.SenderID, true)
		}
	})
	conn.On(realtime.EventStopTyping, func(data json.RawMessage) {
		if sig, ok := decodeSignal(data); ok {
			i.Apply(sig.SenderID, false)
		}
	})
}

// Apply records one inbound signal.
func (i *Indicator) Apply(senderID string, on bool) {
	if senderID == "" || senderID != i.selected() {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.typing[senderID] = on

	if t := i.timers[senderID]; t != nil {
		t.Stop()
		delete(i.timers, senderID)
	}
	if on && i.expiry > 0 {
		i.timers[senderID] = time.AfterFunc(i.expiry, func() {
			i.clearExpired(senderID)
		})
	}
}

func (i *Indicator) clearExpired(senderID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.typing[senderID] = false
	delete(i.timers, senderID)
}

func (i *Indicator) IsTyping(peerID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.typing[peerID]
}

// Reset drops all flags and timers, used on conversation switch and logout.
func (i *Indicator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, t := range i.timers {
		t.Stop()
		delete(i.timers, id)
	}
	i.typing = make(map[string]bool)
}

func decodeSignal(data json.RawMessage) (*realtime.TypingSignal, bool) {
	sig := &realtime.TypingSignal{}
	if err := json.Unmarshal(data, sig); err != nil {
		log.Printf("bad typing payload: %v", err)
		return nil, false
	}
	return sig, true
}
