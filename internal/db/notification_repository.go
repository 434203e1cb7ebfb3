package db

import (
	"context"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	database *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{database: database}
}

func (repo *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return repo.database.WithContext(ctx).Create(notification).Error
}

func (repo *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	query := repo.database.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	notifications := make([]models.Notification, 0, filter.Page.Limit)
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (repo *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := repo.database.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead reports false when the notification does not belong to the user.
func (repo *NotificationRepository) MarkRead(ctx context.Context, userID uint, notificationID uint, at time.Time) (bool, error) {
	result := repo.database.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (repo *NotificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	result := repo.database.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}
