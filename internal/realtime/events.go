package realtime

import "encoding/json"

// Event names on the persistent connection. Both the client core and the
// reference server speak these.
const (
	EventNewMessage             = "new-message"
	EventMessageDeleted         = "message-deleted"
	EventMessageDeletedFromBoth = "message-deleted-from-both"
	EventTyping                 = "typing"
	EventStopTyping             = "stop-typing"
	EventOnlineRoster           = "online-roster"
	EventForcedDisconnect       = "forced-disconnect"
)

// Envelope is the wire frame: an event name plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TypingSignal is the payload of typing / stop-typing in both directions.
// Outbound the client fills ReceiverID; inbound the server fills SenderID.
type TypingSignal struct {
	SenderID   string `json:"sender_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
}

// Deletion is the payload of message-deleted and message-deleted-from-both.
type Deletion struct {
	MessageID string `json:"message_id"`
	DeletedBy string `json:"deleted_by,omitempty"`
}
