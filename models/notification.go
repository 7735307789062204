package models

import (
	"time"
)

// Notification is a persisted, user-visible record of an alert having fired.
// Rows are never deleted here; only IsRead changes after creation.
type Notification struct {
	ID        uint      `json:"notification_id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index:idx_notifications_guard,priority:1"`
	Title     string    `json:"title" gorm:"size:255;not null;index:idx_notifications_guard,priority:2"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_notifications_guard,priority:3"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
