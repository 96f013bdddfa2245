package dbmysql

import (
	"context"

	"gorm.io/gorm"
)

type FollowRepository interface {
	Exists(ctx context.Context, userID, targetID string) (bool, error)
	Create(ctx context.Context, edge *Follow) error
	Delete(ctx context.Context, userID, targetID string) error
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListFollowers(ctx context.Context, userID string) ([]string, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, userID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Follow{}).
		Where("user_id = ? AND target_user_id = ?", userID, targetID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) Create(ctx context.Context, edge *Follow) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

func (r *followRepository) Delete(ctx context.Context, userID, targetID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", userID, targetID).
		Delete(&Follow{}).Error
}

func (r *followRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Follow{}).
		Where("user_id = ?", userID).
		Order("target_user_id ASC").
		Pluck("target_user_id", &ids).Error
	return ids, err
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Follow{}).
		Where("target_user_id = ?", userID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
