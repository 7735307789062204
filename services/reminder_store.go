package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"healthwatch-server/models"
)

// ReminderDue is one due reminder joined with its owner's push destination.
type ReminderDue struct {
	ScheduleID uint
	UserID     uint
	Title      string
	Type       string
	PushToken  string
}

type reminderRow struct {
	ScheduleID uint    `gorm:"column:schedule_id"`
	UserID     uint    `gorm:"column:user_id"`
	Title      string  `gorm:"column:title"`
	Type       *string `gorm:"column:type"`
	FCMToken   *string `gorm:"column:fcm_token"`
}

func newReminderDue(row reminderRow) (ReminderDue, error) {
	if row.ScheduleID == 0 || row.UserID == 0 {
		return ReminderDue{}, fmt.Errorf("%w: reminder row without schedule or user id", ErrValidation)
	}
	title := strings.TrimSpace(row.Title)
	if title == "" {
		return ReminderDue{}, fmt.Errorf("%w: reminder %d has an empty title", ErrValidation, row.ScheduleID)
	}
	due := ReminderDue{
		ScheduleID: row.ScheduleID,
		UserID:     row.UserID,
		Title:      title,
	}
	if row.Type != nil {
		due.Type = strings.TrimSpace(*row.Type)
	}
	if row.FCMToken != nil {
		due.PushToken = strings.TrimSpace(*row.FCMToken)
	}
	return due, nil
}

// ReminderStore reads reminders for the scheduler. It never creates or edits
// them beyond stamping last_triggered_at.
type ReminderStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewReminderStore(db *gorm.DB, logger *zap.Logger) *ReminderStore {
	return &ReminderStore{db: db, logger: logger}
}

// FindDueReminders returns the active reminders whose minute matches keys.Time
// and that are due on keys.Date (one-off) or keys.Weekday (recurring).
//
// Rows are grouped on (user, title, type, push token) so duplicate rows for the
// same logical reminder yield a single result, represented by the highest
// schedule id. This normalizes dirty data left by the CRUD layer.
func (s *ReminderStore) FindDueReminders(ctx context.Context, keys TimeKeys) ([]ReminderDue, error) {
	var rows []reminderRow

	weekdayPattern := "%," + strconv.Itoa(keys.Weekday) + ",%"
	err := s.db.WithContext(ctx).
		Table("schedules AS s").
		Select("MAX(s.id) AS schedule_id, s.user_id, s.title, s.type, u.fcm_token").
		Joins("JOIN users u ON u.id = s.user_id").
		Where("s.is_active = ?", true).
		Where("SUBSTR(s.reminder_time, 1, 5) = ?", keys.Time).
		Where("((s.specific_date IS NOT NULL AND s.specific_date = ?) OR (COALESCE(s.specific_date, '') = '' AND (',' || REPLACE(COALESCE(s.repeat_days, ''), ' ', '') || ',') LIKE ?))",
			keys.Date, weekdayPattern).
		Group("s.user_id, s.title, s.type, u.fcm_token").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("find due reminders", err)
	}

	due := make([]ReminderDue, 0, len(rows))
	for _, row := range rows {
		item, err := newReminderDue(row)
		if err != nil {
			s.logger.Warn("⚠️ Skipping malformed reminder row", zap.Error(err))
			continue
		}
		due = append(due, item)
	}
	return due, nil
}

// ClaimTrigger stamps last_triggered_at on a reminder unless it was already
// stamped within window, and reports whether this caller made the stamp. Two
// overlapping ticks racing on the same reminder get one winner from the
// conditional update itself.
func (s *ReminderStore) ClaimTrigger(ctx context.Context, scheduleID uint, now time.Time, window time.Duration) (bool, error) {
	now = now.UTC().Truncate(time.Second)
	res := s.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ? AND (last_triggered_at IS NULL OR last_triggered_at < ?)", scheduleID, now.Add(-window)).
		UpdateColumn("last_triggered_at", now)
	if res.Error != nil {
		return false, persistenceError("claim reminder trigger", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListForUser returns a user's reminders ordered by time of day.
func (s *ReminderStore) ListForUser(ctx context.Context, userID uint) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reminder_time ASC, id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, persistenceError("list schedules", err)
	}
	return schedules, nil
}

// Create validates and stores a reminder. The scheduler never calls it; it
// exists for seeding and for the reminder CRUD surface that owns the table.
func (s *ReminderStore) Create(ctx context.Context, schedule *models.Schedule) error {
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return persistenceError("create schedule", err)
	}
	return nil
}
