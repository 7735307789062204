package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"healthwatch-server/models"
)

// NotificationStore persists the in-app notification feed.
type NotificationStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewNotificationStore(db *gorm.DB, logger *zap.Logger) *NotificationStore {
	return &NotificationStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the creation clock. Used by the scheduler so the row's
// created_at matches the tick instant.
func (s *NotificationStore) WithClock(now func() time.Time) *NotificationStore {
	clone := *s
	clone.now = now
	return &clone
}

func (s *NotificationStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Create inserts an unread notification stamped with the store clock.
func (s *NotificationStore) Create(ctx context.Context, userID uint, title, message string) (*models.Notification, error) {
	title = strings.TrimSpace(title)
	if userID == 0 || title == "" {
		return nil, fmt.Errorf("%w: notification needs a user and a title", ErrValidation)
	}

	notification := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		IsRead:    false,
		CreatedAt: s.stamp(),
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, persistenceError("create notification", err)
	}
	return notification, nil
}

// WasRecentlyNotified reports whether a notification with the same user, title
// and message was created in (now-window, now].
func (s *NotificationStore) WasRecentlyNotified(ctx context.Context, userID uint, title, message string, window time.Duration, now time.Time) (bool, error) {
	since := now.UTC().Truncate(time.Second).Add(-window)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND title = ? AND message = ? AND created_at > ?", userID, strings.TrimSpace(title), message, since).
		Count(&count).Error
	if err != nil {
		return false, persistenceError("check recent notification", err)
	}
	return count > 0, nil
}

// ListForUser returns a user's notifications newest first. limit <= 0 means all.
func (s *NotificationStore) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, persistenceError("list notifications", err)
	}
	return notifications, nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, persistenceError("count unread notifications", err)
	}
	return count, nil
}

// MarkRead flags one of the user's notifications as read. Notifications owned
// by someone else look the same as missing ones.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	if err != nil {
		return nil, persistenceError("load notification", err)
	}

	if !notification.IsRead {
		if err := s.db.WithContext(ctx).Model(&notification).UpdateColumn("is_read", true).Error; err != nil {
			return nil, persistenceError("mark notification read", err)
		}
		notification.IsRead = true
	}
	return &notification, nil
}

// MarkAllRead flags every unread notification of the user and returns how many
// changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return 0, persistenceError("mark all notifications read", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Debug("Marked notifications read", zap.Uint("user_id", userID), zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
