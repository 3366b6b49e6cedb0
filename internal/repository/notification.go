package repository

import (
	"context"

	"github.com/levisbarua/pesaflow-1/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notification struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notification{db: db}
}

func (n *notification) Create(ctx context.Context, notification *model.Notification) error {
	err := GetTx(ctx, n.db).Create(notification).Error
	if err != nil && isDuplicateKey(err) {
		return ErrNotificationDuplicate
	}

	return err
}

func (n *notification) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	var notifications []model.Notification

	err := GetTx(ctx, n.db).Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (n *notification) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64

	err := GetTx(ctx, n.db).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error

	return count, err
}

func (n *notification) MarkRead(ctx context.Context, userID, id string) error {
	db := GetTx(ctx, n.db)

	result := db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the row was already read.
	var count int64
	if err := db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

func (n *notification) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := GetTx(ctx, n.db).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)

	return result.RowsAffected, result.Error
}
