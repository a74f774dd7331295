package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// NotificationRepository stores per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxNotificationLimit {
		limit = defaultNotificationLimit
	}

	var notifications []models.Notification
	err := r.inbox(ctx, userID, unreadOnly).
		Order("created_at DESC").
		Order("id DESC").
		Offset(max(offset, 0)).
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.inbox(ctx, userID, true).Count(&count).Error
	return count, err
}

// MarkRead flags a notification owned by userID as read. Already read notifications are returned unchanged.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.inbox(ctx, userID, false).Where("id = ?", id).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}
	if notification.Read {
		return notification, nil
	}

	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&notification).Updates(map[string]interface{}{
		"read":    true,
		"read_at": now,
	}).Error; err != nil {
		return models.Notification{}, err
	}
	notification.Read = true
	notification.ReadAt = &now

	return notification, nil
}

// MarkAllRead flags every unread notification of userID and reports how many changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.inbox(ctx, userID, true).Updates(map[string]interface{}{
		"read":    true,
		"read_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) inbox(ctx context.Context, userID uint, unreadOnly bool) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	return query
}
