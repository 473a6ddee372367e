package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath string
	AdminToken   string
	LogLevel     string
	LogFormat    string
	Port         string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env file: %w", err)
	}

	config := Config{
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/meal-plan.db"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "text"),
		Port:         envOrDefault("PORT", "8080"),
	}

	if config.AdminToken == "" {
		return Config{}, fmt.Errorf("ADMIN_TOKEN is required")
	}

	return config, nil
}

func (config Config) SlogLevel() slog.Level {
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
