package repository

import (
	"context"

	"gorm.io/gorm"

	"sga-horarios/backend/internal/model"
)

// NotificationRepository 通知数据访问接口
// 用户可见范围 = 发给本人的通知 + 广播通知（user_id IS NULL）
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, deletedBy string) error
	// DeleteRead 删除本人已读通知（广播通知不受影响）
	DeleteRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) visibleTo(db *gorm.DB, userID string) *gorm.DB {
	return db.Where("(user_id = ? OR user_id IS NULL)", userID)
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	var list []model.Notification
	db := r.visibleTo(r.db.WithContext(ctx), userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	err := db.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.visibleTo(r.db.WithContext(ctx).Model(&model.Notification{}), userID).
		Where("is_read = ?", false).
		Count(&n).Error
	return n, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := r.visibleTo(r.db.WithContext(ctx).Model(&model.Notification{}), userID).
		Where("is_read = ?", false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Notification{}).
			Where("notification_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		result := tx.Where("notification_id = ?", id).Delete(&model.Notification{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *notificationRepo) DeleteRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
