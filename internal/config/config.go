package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI     string
	TelegramToken   string
	AIAPIKey        string
	AIBaseURL       string
	AIModel         string
	DefaultTimezone string
	CheckInterval   time.Duration
	ReminderWindow  time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	return &Config{
		DatabaseURI:     os.Getenv("DATABASE_URI"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		AIAPIKey:        os.Getenv("AI_API_KEY"),
		AIBaseURL:       getEnvOrDefault("AI_BASE_URL", "https://api.openai.com/v1"),
		AIModel:         getEnvOrDefault("AI_MODEL", "gpt-4o-mini"),
		DefaultTimezone: getEnvOrDefault("DEFAULT_TIMEZONE", "Europe/Moscow"),
		CheckInterval:   time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 60)) * time.Second,
		ReminderWindow:  time.Duration(getEnvInt("REMINDER_WINDOW_MINUTES", 5)) * time.Minute,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
