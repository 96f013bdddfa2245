package dbmysql

import (
	"context"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Save(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, messageID string) (*Message, error)
	// History returns the full conversation between the unordered pair,
	// oldest first.
	History(ctx context.Context, userA, userB string) ([]*Message, error)
	// SoftDelete marks the message deleted for both parties. Deleting an
	// already-deleted or unknown id is a no-op.
	SoftDelete(ctx context.Context, messageID string) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Save(ctx context.Context, msg *Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) GetByID(ctx context.Context, messageID string) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) History(ctx context.Context, userA, userB string) ([]*Message, error) {
	var messages []*Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) SoftDelete(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&Message{}).Error
}
