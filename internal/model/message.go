package model

import (
	"time"
)

// Message is one chat message as the backend returns it. Created by the
// sending side, only ever mutated by delete operations.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"` // retrievable URL or inline encoded blob
	CreatedAt  time.Time `json:"created_at"`
	Deleted    bool      `json:"deleted,omitempty"`
}

// Belongs reports whether the message is part of the conversation between
// the two given users. A conversation is keyed by the unordered
// (sender, receiver) pair.
func (m *Message) Belongs(userA, userB string) bool {
	return (m.SenderID == userA && m.ReceiverID == userB) ||
		(m.SenderID == userB && m.ReceiverID == userA)
}

// TranslateResult is the stateless translation response; the original
// message is never mutated by a translation.
type TranslateResult struct {
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}
