package typing

import (
	"log"
	"sync"
	"time"

	"chatwave/internal/realtime"
)

// Emitter is the slice of the connection the notifier needs.
type Emitter interface {
	Emit(event string, payload interface{}) error
}

// Notifier owns the outbound half of the typing protocol. The first
// keystroke in an idle conversation emits a typing signal; every keystroke
// re-arms one idle timer; when the timer fires (or the input empties) a
// stop-typing signal goes out. One timer per session, last call wins.
//
// The inbound side has no timeout of its own, so the stop-typing emitted
// here is what keeps the peer's indicator from sticking.
type Notifier struct {
	emitter Emitter
	idle    time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	active     bool
	receiverID string

	// gen invalidates timers that fired while a keystroke held the lock.
	// Stop on an already-fired timer cannot unblock its goroutine, so the
	// expiry revalidates its generation the same way a resumed fetch does.
	gen uint64
}

func NewNotifier(emitter Emitter, idle time.Duration) *Notifier {
	return &Notifier{emitter: emitter, idle: idle}
}

// HandleTyping is called on every local keystroke in an active conversation.
func (n *Notifier) HandleTyping(receiverID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.active && n.receiverID != receiverID {
		// switched conversations mid-typing: release the old peer first
		n.emit(realtime.EventStopTyping, n.receiverID)
		n.active = false
	}

	if !n.active {
		n.active = true
		n.receiverID = receiverID
		n.emit(realtime.EventTyping, receiverID)
	}

	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = time.AfterFunc(n.idle, func() { n.expire(gen) })
}

// HandleStop is called when the input becomes empty; the stop signal goes
// out immediately instead of waiting for the idle timer.
func (n *Notifier) HandleStop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen {
		// a keystroke re-armed the window while this timer waited for the
		// lock; the stop it would emit belongs to a superseded window
		return
	}
	n.stopLocked()
}

func (n *Notifier) stopLocked() {
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if !n.active {
		return
	}
	n.active = false
	n.emit(realtime.EventStopTyping, n.receiverID)
}

func (n *Notifier) emit(event, receiverID string) {
	if err := n.emitter.Emit(event, &realtime.TypingSignal{ReceiverID: receiverID}); err != nil {
		log.Printf("typing signal %s dropped: %v", event, err)
	}
}
