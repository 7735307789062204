package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"healthwatch-server/models"
	"healthwatch-server/services"
	"healthwatch-server/utils"
)

const (
	demoEmail    = "demo@healthwatch.local"
	demoPassword = "demo-password"
)

// seedDemoData creates a demo account with a few reminders when it does not
// exist yet. Only used for local runs (SEED_DEMO=true).
func seedDemoData(ctx context.Context, users *services.UserStore, reminders *services.ReminderStore, logger *zap.Logger) error {
	if _, err := users.GetByEmail(ctx, demoEmail); err == nil {
		logger.Info("⏭️  Demo user already exists", zap.String("email", demoEmail))
		return nil
	} else if !errors.Is(err, services.ErrNotFound) {
		return err
	}

	hash, err := utils.HashPassword(demoPassword)
	if err != nil {
		return err
	}
	user := &models.User{FullName: "Demo User", Email: demoEmail, PasswordHash: hash, IsActive: true}
	if err := users.Create(ctx, user); err != nil {
		return err
	}
	logger.Info("✅ Created demo user", zap.String("email", demoEmail))

	schedules := []models.Schedule{
		{Title: "Morning walk", Type: "exercise", ReminderTime: "07:00", RepeatDays: "2,3,4,5,6"},
		{Title: "Blood pressure pills", Type: "medicine", ReminderTime: "08:30", RepeatDays: "2,3,4,5,6,7,8"},
		{Title: "Weekend yoga", Type: "exercise", ReminderTime: "09:00", RepeatDays: "7,8"},
		{Title: "Sleep", Type: "sleep", ReminderTime: "22:30", RepeatDays: "2,3,4,5,6,7,8"},
	}
	for _, schedule := range schedules {
		schedule.UserID = user.ID
		schedule.IsActive = true
		if err := reminders.Create(ctx, &schedule); err != nil {
			logger.Error("Failed to create reminder", zap.String("title", schedule.Title), zap.Error(err))
			return err
		}
		logger.Info("✅ Created reminder", zap.String("title", schedule.Title), zap.String("time", schedule.ReminderTime))
	}
	return nil
}
