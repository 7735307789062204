package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// ReminderTimeLayout is the stored time-of-day format. Only HH:MM is significant.
	ReminderTimeLayout = "15:04:05"
	// DateLayout is the calendar date format used for specific dates and date keys.
	DateLayout = "2006-01-02"

	// Weekday codes: Monday=2 ... Saturday=7, Sunday=8.
	WeekdayMonday = 2
	WeekdaySunday = 8
	// sundayAlias is accepted on input and normalized to WeekdaySunday.
	sundayAlias = 1
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule is a user-owned reminder. It fires once on SpecificDate when that is
// set, otherwise on every weekday listed in RepeatDays. With neither set it
// never fires.
type Schedule struct {
	ID              uint       `json:"schedule_id" gorm:"primaryKey"`
	UserID          uint       `json:"user_id" gorm:"not null;index"`
	Title           string     `json:"title" gorm:"size:255;not null"`
	Type            string     `json:"type" gorm:"size:100"`
	ReminderTime    string     `json:"reminder_time" gorm:"size:8;not null;index"`
	RepeatDays      string     `json:"repeat_days" gorm:"size:32"`
	SpecificDate    *string    `json:"specific_date" gorm:"size:10;index"`
	IsActive        bool       `json:"is_active" gorm:"not null;index"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Schedule model
func (Schedule) TableName() string {
	return "schedules"
}

// Validate normalizes ReminderTime, RepeatDays and SpecificDate in place and
// rejects malformed values.
func (s *Schedule) Validate() error {
	if s.UserID == 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidSchedule)
	}
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSchedule)
	}

	clock, err := NormalizeReminderTime(s.ReminderTime)
	if err != nil {
		return err
	}
	s.ReminderTime = clock

	days, err := ParseRepeatDays(s.RepeatDays)
	if err != nil {
		return err
	}
	s.RepeatDays = JoinRepeatDays(days)

	if s.SpecificDate != nil {
		date := strings.TrimSpace(*s.SpecificDate)
		if date == "" {
			s.SpecificDate = nil
		} else {
			if _, err := time.Parse(DateLayout, date); err != nil {
				return fmt.Errorf("%w: specific date %q is not YYYY-MM-DD", ErrInvalidSchedule, date)
			}
			s.SpecificDate = &date
		}
	}
	return nil
}

// Fires reports whether the schedule can ever become due.
func (s *Schedule) Fires() bool {
	hasDate := s.SpecificDate != nil && strings.TrimSpace(*s.SpecificDate) != ""
	return s.IsActive && (hasDate || strings.TrimSpace(s.RepeatDays) != "")
}

// MinuteKey returns the HH:MM part of ReminderTime.
func (s *Schedule) MinuteKey() string {
	if len(s.ReminderTime) < 5 {
		return s.ReminderTime
	}
	return s.ReminderTime[:5]
}

// NormalizeReminderTime accepts HH:MM, HH:MM:SS or an RFC 3339 timestamp and
// returns the HH:MM:SS clock.
func NormalizeReminderTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{ReminderTimeLayout, "15:04", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ReminderTimeLayout), nil
		}
	}
	return "", fmt.Errorf("%w: reminder time %q is not a time of day", ErrInvalidSchedule, raw)
}

// ParseRepeatDays parses a comma-joined weekday code list, dropping blanks and
// duplicates and mapping the Sunday alias 1 to 8.
func ParseRepeatDays(raw string) ([]int, error) {
	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: weekday code %q is not a number", ErrInvalidSchedule, part)
		}
		if code == sundayAlias {
			code = WeekdaySunday
		}
		if code < WeekdayMonday || code > WeekdaySunday {
			return nil, fmt.Errorf("%w: weekday code %d out of range 2..8", ErrInvalidSchedule, code)
		}
		if !seen[code] {
			seen[code] = true
			days = append(days, code)
		}
	}
	sort.Ints(days)
	return days, nil
}

// JoinRepeatDays encodes weekday codes as stored.
func JoinRepeatDays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
