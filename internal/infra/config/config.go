package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string
	DatabaseURL       string
	ManagerTelegramID int64
	LogLevel          string
	Environment       string

	// Reminder tier delays relative to session start.
	ReminderDelayTier1 time.Duration
	ReminderDelayTier2 time.Duration
	ReminderDelayTier3 time.Duration

	// Cron spec for the sweep that re-arms reminder task sets after a restart.
	CronSpecReminderRecovery string

	// Whether a second /start after partial progress discards in-flight answers.
	RestartDiscardsProgress bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	managerIDStr := os.Getenv("MANAGER_TELEGRAM_ID")
	if managerIDStr == "" {
		return nil, fmt.Errorf("MANAGER_TELEGRAM_ID is not set")
	}
	cfg.ManagerTelegramID, err = strconv.ParseInt(managerIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MANAGER_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.ReminderDelayTier1, err = durationEnv("REMINDER_DELAY_TIER1", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.ReminderDelayTier2, err = durationEnv("REMINDER_DELAY_TIER2", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.ReminderDelayTier3, err = durationEnv("REMINDER_DELAY_TIER3", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.CronSpecReminderRecovery = os.Getenv("CRON_SPEC_REMINDER_RECOVERY")
	if cfg.CronSpecReminderRecovery == "" {
		cfg.CronSpecReminderRecovery = "*/5 * * * *" // Default: every 5 minutes
	}

	restartStr := os.Getenv("RESTART_DISCARDS_PROGRESS")
	if restartStr == "" {
		cfg.RestartDiscardsProgress = true // Default: a new attempt starts clean
	} else {
		cfg.RestartDiscardsProgress, err = strconv.ParseBool(restartStr)
		if err != nil {
			return nil, fmt.Errorf("invalid RESTART_DISCARDS_PROGRESS: %w", err)
		}
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}
