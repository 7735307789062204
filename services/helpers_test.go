package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"healthwatch-server/database"
	"healthwatch-server/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	db, err := database.OpenMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, token string) *models.User {
	t.Helper()
	user := &models.User{FullName: "Test User", Email: email, PasswordHash: "x", IsActive: true}
	if token != "" {
		user.FCMToken = &token
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createSchedule(t *testing.T, store *ReminderStore, schedule models.Schedule) *models.Schedule {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &schedule))
	return &schedule
}

func nopLogger() *zap.Logger { return zap.NewNop() }
