package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"chatwave/internal/common"
	"chatwave/internal/gateway"
	"chatwave/internal/model"
	"chatwave/internal/realtime"
)

// State of the open conversation.
type State int

const (
	StateIdle State = iota // no peer selected
	StateLoading
	StateReady
	StateError // history fetch failed; peer stays selected, list untouched
)

// SendInput is one outgoing message. ReceiverID falls back to the selected
// peer when empty.
type SendInput struct {
	Text       string
	Image      string
	ReceiverID string
}

// ForwardResult aggregates a fan-out. Failures are isolated per recipient
// and never abort the rest; an all-failed forward is still a result, not an
// error.
type ForwardResult struct {
	Succeeded        int
	Failed           int
	FailedRecipients []string
}

// ChatStore is the per-conversation state machine. One conversation is open
// at a time; its message list is a log in arrival order, guarded by an id
// set so reconciliation stays idempotent no matter how events arrive.
//
// Every operation that suspends on the network revalidates its precondition
// (is this peer still selected, is the fetch still current) before applying
// the result. Superseded results are discarded, never applied.
type ChatStore struct {
	gw   gateway.Gateway
	self string

	onPeerDeletion func(realtime.Deletion)

	mu       sync.Mutex
	selected string
	state    State
	fetchSeq uint64
	messages []*model.Message
	present  map[string]struct{}
}

func NewChatStore(gw gateway.Gateway, selfID string) *ChatStore {
	return &ChatStore{
		gw:      gw,
		self:    selfID,
		present: make(map[string]struct{}),
	}
}

// OnPeerDeletion sets the passive notification fired when the other side
// deletes a message out of the open conversation.
func (s *ChatStore) OnPeerDeletion(fn func(realtime.Deletion)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPeerDeletion = fn
}

// Attach subscribes the store to message events on the connection.
func (s *ChatStore) Attach(conn *realtime.Conn) {
	conn.On(realtime.EventNewMessage, func(data json.RawMessage) {
		msg := &model.Message{}
		if err := json.Unmarshal(data, msg); err != nil {
			log.Printf("bad new-message payload: %v", err)
			return
		}
		s.ApplyNewMessage(msg)
	})

	onDeletion := func(data json.RawMessage) {
		var del realtime.Deletion
		if err := json.Unmarshal(data, &del); err != nil {
			log.Printf("bad deletion payload: %v", err)
			return
		}
		s.ApplyDeletion(del)
	}
	conn.On(realtime.EventMessageDeleted, onDeletion)
	conn.On(realtime.EventMessageDeletedFromBoth, onDeletion)
}

func (s *ChatStore) SelectedPeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *ChatStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns the list in arrival order.
func (s *ChatStore) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Message(nil), s.messages...)
}

// SortedByTime returns the display order: membership is decided by id, but
// rendering goes by the timestamps, which preserve true chronology even
// when delivery was reordered.
func (s *ChatStore) SortedByTime() []*model.Message {
	msgs := s.Messages()
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs
}

// SelectPeer opens the conversation with peerID and loads its history.
// Selecting bumps the fetch sequence, so a still-in-flight fetch for the
// previous peer can never overwrite the new peer's list.
func (s *ChatStore) SelectPeer(ctx context.Context, peerID string) error {
	if peerID == "" {
		return common.NewValidationError("peer id required")
	}

	s.mu.Lock()
	s.selected = peerID
	s.fetchSeq++
	seq := s.fetchSeq
	s.state = StateLoading
	s.mu.Unlock()

	return s.fetch(ctx, peerID, seq)
}

// FetchMessages reloads the open conversation's history.
func (s *ChatStore) FetchMessages(ctx context.Context) error {
	s.mu.Lock()
	peerID := s.selected
	if peerID == "" {
		s.mu.Unlock()
		return &common.NoRecipientError{}
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.state = StateLoading
	s.mu.Unlock()

	return s.fetch(ctx, peerID, seq)
}

func (s *ChatStore) fetch(ctx context.Context, peerID string, seq uint64) error {
	history, err := s.gw.FetchHistory(ctx, peerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchSeq != seq || s.selected != peerID {
		// a later selection superseded this fetch; its result is stale
		// either way, drop it on the floor
		return nil
	}

	if err != nil {
		s.state = StateError
		return &common.FetchError{PeerID: peerID, Err: err}
	}

	// history is a cold snapshot: replace, never append
	s.messages = make([]*model.Message, 0, len(history))
	s.present = make(map[string]struct{}, len(history))
	for _, msg := range history {
		s.addLocked(msg)
	}
	s.state = StateReady
	return nil
}

// ClearSelection closes the open conversation.
func (s *ChatStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
	s.fetchSeq++
	s.state = StateIdle
	s.messages = nil
	s.present = make(map[string]struct{})
}

// SendMessage validates, resolves the receiver, and sends. The returned
// message is appended locally only when the resolved receiver is still the
// selected peer at resume time; after a conversation switch it stays out of
// the open thread and will arrive through the event path when that
// conversation is reopened.
func (s *ChatStore) SendMessage(ctx context.Context, in SendInput) (*model.Message, error) {
	if err := common.ValidateOutgoing(in.Text, in.Image); err != nil {
		return nil, err
	}

	s.mu.Lock()
	receiver := in.ReceiverID
	if receiver == "" {
		receiver = s.selected
	}
	s.mu.Unlock()

	if receiver == "" {
		return nil, &common.NoRecipientError{}
	}

	msg, err := s.gw.Send(ctx, receiver, in.Text, in.Image)
	if err != nil {
		return nil, &common.SendError{ReceiverID: receiver, Err: err}
	}

	s.mu.Lock()
	if s.selected == receiver {
		s.addLocked(msg)
	}
	s.mu.Unlock()

	return msg, nil
}

// DeleteForBoth requests a deletion visible to both parties. Local removal
// waits for the inbound deletion event so both sides observe the same
// thing; nothing is removed optimistically.
func (s *ChatStore) DeleteForBoth(ctx context.Context, messageID string) error {
	if messageID == "" {
		return common.NewValidationError("message id required")
	}
	if err := s.gw.DeleteForBoth(ctx, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

// ForwardMessage fans the message out to each recipient independently. One
// recipient failing never aborts the others and nothing is retried.
func (s *ChatStore) ForwardMessage(ctx context.Context, msg *model.Message, recipientIDs []string) (*ForwardResult, error) {
	if msg == nil {
		return nil, common.NewValidationError("no message to forward")
	}
	if len(recipientIDs) == 0 {
		return nil, common.NewValidationError("forward needs at least one recipient")
	}

	result := &ForwardResult{}
	seen := make(map[string]struct{}, len(recipientIDs))

	for _, id := range recipientIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}

		sent, err := s.gw.Send(ctx, id, msg.Text, msg.Image)
		if err != nil {
			log.Printf("forward to %s failed: %v", id, err)
			result.Failed++
			result.FailedRecipients = append(result.FailedRecipients, id)
			continue
		}
		result.Succeeded++

		s.mu.Lock()
		if s.selected == id {
			s.addLocked(sent)
		}
		s.mu.Unlock()
	}

	return result, nil
}

// TranslateMessage is a stateless request; the original message text is
// immutable and the translation is only displayed transiently.
func (s *ChatStore) TranslateMessage(ctx context.Context, messageID, text, languageCode string) (*model.TranslateResult, error) {
	if text == "" {
		return nil, common.NewValidationError("nothing to translate")
	}
	if languageCode == "" {
		return nil, common.NewValidationError("language code required")
	}
	return s.gw.Translate(ctx, messageID, text, languageCode)
}

// ApplyNewMessage reconciles an inbound message event. Only events for the
// open conversation land here; the rest belong to the unread-badge
// collaborator, not this store. Duplicates are skipped by id.
func (s *ChatStore) ApplyNewMessage(msg *model.Message) {
	if msg == nil || msg.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" || !msg.Belongs(s.self, s.selected) {
		return
	}
	s.addLocked(msg)
}

// ApplyDeletion removes the message by id wherever it currently is. A
// second deletion event for an id already absent is a no-op. When the
// deleting actor is the peer, the passive notification fires.
func (s *ChatStore) ApplyDeletion(del realtime.Deletion) {
	s.mu.Lock()
	removed := s.removeLocked(del.MessageID)
	notify := removed && del.DeletedBy != "" && del.DeletedBy != s.self
	fn := s.onPeerDeletion
	s.mu.Unlock()

	if notify && fn != nil {
		fn(del)
	}
}

func (s *ChatStore) addLocked(msg *model.Message) {
	if _, dup := s.present[msg.ID]; dup {
		return
	}
	s.present[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
}

func (s *ChatStore) removeLocked(messageID string) bool {
	if _, ok := s.present[messageID]; !ok {
		return false
	}
	delete(s.present, messageID)

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.ID != messageID {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	return true
}
