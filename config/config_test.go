package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_DefaultValues(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Scheduler.Timezone)
	assert.Equal(t, "* * * * *", cfg.Scheduler.CronSpec)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.GuardWindow())
	assert.Equal(t, 55*time.Second, cfg.Scheduler.ClaimWindow())
	assert.Equal(t, []string{"*"}, cfg.Socket.AllowedOrigins)
	assert.Empty(t, cfg.Push.CredentialsJSON)
	assert.Same(t, cfg, AppConfig)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")
	t.Setenv("SCHEDULER_GUARD_WINDOW_MINUTES", "3")
	t.Setenv("SOCKET_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
	assert.Equal(t, 3*time.Minute, cfg.Scheduler.GuardWindow())
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.Socket.AllowedOrigins)
}

func TestLoad_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"bad timezone", "SCHEDULER_TIMEZONE", "Mars/Olympus_Mons"},
		{"zero guard window", "SCHEDULER_GUARD_WINDOW_MINUTES", "0"},
		{"zero jwt expiry", "JWT_EXPIRY_HOURS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
