package dbmysql

import (
	"time"

	"gorm.io/gorm"
)

// Message is one direct message. The conversation is the unordered
// (sender, receiver) pair; delete-for-both soft deletes the row so a later
// history fetch agrees with the deletion event both clients saw.
type Message struct {
	MessageID  string         `gorm:"primaryKey;column:message_id;size:36" json:"id"`
	SenderID   string         `gorm:"column:sender_id;index:idx_pair;size:36;not null" json:"sender_id"`
	ReceiverID string         `gorm:"column:receiver_id;index:idx_pair;size:36;not null" json:"receiver_id"`
	Text       string         `gorm:"column:text;type:text" json:"text,omitempty"`
	ImageURL   string         `gorm:"column:image_url;size:512" json:"image,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type Follow struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"column:user_id;size:36;not null;index:idx_edge,unique" json:"user_id"`
	TargetUserID string    `gorm:"column:target_user_id;size:36;not null;index:idx_edge,unique" json:"target_user_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
