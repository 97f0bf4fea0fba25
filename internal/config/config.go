package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL  string
	KeyPrefix string

	DefaultArea         string
	WildernessRulesPath string

	AuditDBPath string
	AuditLogDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		LogLevel:            parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:            getEnv("REDIS_URL", "localhost:6379"),
		KeyPrefix:           getEnv("KEY_PREFIX", "world"),
		DefaultArea:         getEnv("DEFAULT_AREA", "overworld"),
		WildernessRulesPath: os.Getenv("WILDERNESS_RULES_PATH"),
		AuditDBPath:         getEnv("AUDIT_DB_PATH", "./data/audit.db"),
		AuditLogDir:         getEnv("AUDIT_LOG_DIR", "./data/audit"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}
	if strings.ContainsAny(cfg.KeyPrefix, " :") {
		return nil, fmt.Errorf("invalid KEY_PREFIX %q: must not contain spaces or colons", cfg.KeyPrefix)
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
