package presence

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"chatwave/internal/realtime"
)

// Tracker projects the server's online-roster broadcasts into a queryable
// set. Broadcasts are authoritative snapshots, so each one replaces the set
// wholesale; there are no client-initiated operations.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]struct{})}
}

// Attach subscribes the tracker to roster events on the connection.
func (t *Tracker) Attach(conn *realtime.Conn) {
	conn.On(realtime.EventOnlineRoster, func(data json.RawMessage) {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			log.Printf("bad online-roster payload: %v", err)
			return
		}
		t.ReplaceAll(ids)
	})
}

// ReplaceAll swaps in a full roster snapshot.
func (t *Tracker) ReplaceAll(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	t.mu.Lock()
	t.online = next
	t.mu.Unlock()
}

func (t *Tracker) IsOnline(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

// Online returns the current roster, sorted for stable display.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Clear empties the roster, used when the session disconnects.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.online = make(map[string]struct{})
	t.mu.Unlock()
}
