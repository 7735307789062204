package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthwatch-server/models"
)

func strPtr(s string) *string { return &s }

func TestFindDueRemindersGroupsDuplicates(t *testing.T) {
	db := newTestDB(t)
	store := NewReminderStore(db, nopLogger())
	user := createUser(t, db, "dup@example.com", "token-dup-123456")

	first := createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Drink water", Type: "health", ReminderTime: "08:00", RepeatDays: "2,4,6", IsActive: true})
	second := createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Drink water", Type: "health", ReminderTime: "08:00:30", RepeatDays: "4", IsActive: true})
	require.Greater(t, second.ID, first.ID)

	due, err := store.FindDueReminders(context.Background(), TimeKeys{Weekday: 4, Date: "2026-10-14", Time: "08:00"})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, second.ID, due[0].ScheduleID)
	assert.Equal(t, "token-dup-123456", due[0].PushToken)
	assert.Equal(t, "health", due[0].Type)
}

func TestFindDueRemindersMatchesMinuteAndDay(t *testing.T) {
	db := newTestDB(t)
	store := NewReminderStore(db, nopLogger())
	user := createUser(t, db, "minute@example.com", "")

	createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Walk", Type: "exercise", ReminderTime: "08:00", RepeatDays: "2,4,6", IsActive: true})
	createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Paused", Type: "exercise", ReminderTime: "08:00", RepeatDays: "4", IsActive: false})
	createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Never", Type: "exercise", ReminderTime: "08:00", IsActive: true})

	tests := []struct {
		name string
		keys TimeKeys
		want []string
	}{
		{"wednesday on the minute", TimeKeys{Weekday: 4, Date: "2026-10-14", Time: "08:00"}, []string{"Walk"}},
		{"one minute later", TimeKeys{Weekday: 4, Date: "2026-10-14", Time: "08:01"}, nil},
		{"thursday", TimeKeys{Weekday: 5, Date: "2026-10-15", Time: "08:00"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, err := store.FindDueReminders(context.Background(), tt.keys)
			require.NoError(t, err)
			var titles []string
			for _, d := range due {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.want, titles)
			for _, d := range due {
				assert.Empty(t, d.PushToken)
			}
		})
	}
}

func TestFindDueRemindersSpecificDateOverridesWeekdays(t *testing.T) {
	db := newTestDB(t)
	store := NewReminderStore(db, nopLogger())
	user := createUser(t, db, "date@example.com", "token-date-123456")

	createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Doctor", Type: "appointment", ReminderTime: "23:59", RepeatDays: "5", SpecificDate: strPtr("2026-10-16"), IsActive: true})

	due, err := store.FindDueReminders(context.Background(), TimeKeys{Weekday: 5, Date: "2026-10-15", Time: "23:59"})
	require.NoError(t, err)
	assert.Empty(t, due, "weekday match must not fire a dated reminder")

	due, err = store.FindDueReminders(context.Background(), TimeKeys{Weekday: 6, Date: "2026-10-16", Time: "23:59"})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Doctor", due[0].Title)
}

func TestFindDueRemindersSundayAlias(t *testing.T) {
	db := newTestDB(t)
	store := NewReminderStore(db, nopLogger())
	user := createUser(t, db, "sunday@example.com", "")

	createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Rest", ReminderTime: "10:00", RepeatDays: "1", IsActive: true})

	due, err := store.FindDueReminders(context.Background(), TimeKeys{Weekday: 8, Date: "2026-10-18", Time: "10:00"})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "", due[0].Type)
}

func TestClaimTriggerWinsOncePerWindow(t *testing.T) {
	db := newTestDB(t)
	store := NewReminderStore(db, nopLogger())
	user := createUser(t, db, "claim@example.com", "")
	schedule := createSchedule(t, store, models.Schedule{UserID: user.ID, Title: "Stretch", ReminderTime: "08:00", RepeatDays: "4", IsActive: true})

	ctx := context.Background()
	now := time.Date(2026, 10, 14, 1, 0, 2, 0, time.UTC)

	won, err := store.ClaimTrigger(ctx, schedule.ID, now, 55*time.Second)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.ClaimTrigger(ctx, schedule.ID, now.Add(20*time.Second), 55*time.Second)
	require.NoError(t, err)
	assert.False(t, won, "second claim inside the window")

	won, err = store.ClaimTrigger(ctx, schedule.ID, now.Add(24*time.Hour), 55*time.Second)
	require.NoError(t, err)
	assert.True(t, won, "next day claims again")
}

func TestCreateScheduleRejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	store := NewReminderStore(db, nopLogger())

	err := store.Create(context.Background(), &models.Schedule{UserID: 1, Title: "Bad", ReminderTime: "25:99"})
	assert.ErrorIs(t, err, ErrValidation)
}
