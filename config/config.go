package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Push      PushConfig
	Scheduler SchedulerConfig
	Socket    SocketConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port               string
	GinMode            string
	Env                string
	RateLimitPerMinute int
	SeedDemo           bool
}

type DatabaseConfig struct {
	Driver     string
	URL        string
	SQLitePath string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// PushConfig carries Firebase credentials and platform delivery hints.
// Empty credentials disable push for the process lifetime.
type PushConfig struct {
	CredentialsJSON string
	CredentialsFile string
	AndroidChannel  string
}

type SchedulerConfig struct {
	Timezone           string
	CronSpec           string
	GuardWindowMinutes int
	ClaimWindowSeconds int
}

type SocketConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

var AppConfig *Config

// Load reads configuration from the environment (and an optional config.yaml)
// into AppConfig and returns it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		log.Println("No config file found, using environment variables only")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               v.GetString("PORT"),
			GinMode:            v.GetString("GIN_MODE"),
			Env:                v.GetString("ENV"),
			RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
			SeedDemo:           v.GetBool("SEED_DEMO"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			URL:        v.GetString("DB_URL"),
			SQLitePath: v.GetString("DB_SQLITE_PATH"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Push: PushConfig{
			CredentialsJSON: v.GetString("FIREBASE_CREDENTIALS"),
			CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
			AndroidChannel:  v.GetString("PUSH_ANDROID_CHANNEL"),
		},
		Scheduler: SchedulerConfig{
			Timezone:           v.GetString("SCHEDULER_TIMEZONE"),
			CronSpec:           v.GetString("SCHEDULER_CRON"),
			GuardWindowMinutes: v.GetInt("SCHEDULER_GUARD_WINDOW_MINUTES"),
			ClaimWindowSeconds: v.GetInt("SCHEDULER_CLAIM_SECONDS"),
		},
		Socket: SocketConfig{
			AllowedOrigins: splitList(v.GetString("SOCKET_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("ENV", "development")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_URL", "")
	v.SetDefault("DB_SQLITE_PATH", "data/healthwatch.db")
	v.SetDefault("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("FIREBASE_CREDENTIALS", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("PUSH_ANDROID_CHANNEL", "schedule_reminders")
	v.SetDefault("SCHEDULER_TIMEZONE", "Asia/Ho_Chi_Minh")
	v.SetDefault("SCHEDULER_CRON", "* * * * *")
	v.SetDefault("SCHEDULER_GUARD_WINDOW_MINUTES", 10)
	v.SetDefault("SCHEDULER_CLAIM_SECONDS", 55)
	v.SetDefault("SOCKET_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
}

// Validate rejects settings the process cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}
	if c.Scheduler.GuardWindowMinutes <= 0 {
		return fmt.Errorf("SCHEDULER_GUARD_WINDOW_MINUTES must be positive, got %d", c.Scheduler.GuardWindowMinutes)
	}
	if c.Scheduler.ClaimWindowSeconds < 0 {
		return fmt.Errorf("SCHEDULER_CLAIM_SECONDS must not be negative, got %d", c.Scheduler.ClaimWindowSeconds)
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive, got %d", c.JWT.ExpiryHours)
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Location returns the pinned scheduler timezone. Validate guarantees it loads.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s SchedulerConfig) GuardWindow() time.Duration {
	return time.Duration(s.GuardWindowMinutes) * time.Minute
}

func (s SchedulerConfig) ClaimWindow() time.Duration {
	return time.Duration(s.ClaimWindowSeconds) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
