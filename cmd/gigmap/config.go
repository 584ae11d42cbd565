package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gigmap/internal/database"
	"gigmap/internal/logging"
	"gigmap/internal/uploads"
)

// Config contains application-wide settings sourced from the environment.
type Config struct {
	Database database.Config
	Addr     string

	UploadDir      string
	UploadMaxBytes int64

	AllowedOrigins     []string
	RateLimitPerMinute int
	HealthInterval     time.Duration

	Logging logging.Config
}

func loadConfig() (Config, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load()

	return configFromEnv(os.Getenv)
}

// configFromEnv parses every key and reports all problems at once.
func configFromEnv(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	var problems []string
	intEnv := func(key string, fallback int) int {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be an integer", key))
			return fallback
		}
		return n
	}

	sslMode := env("DB_SSLMODE", "require")
	cfg := Config{
		Database: database.Config{
			Host:          env("DB_HOST", ""),
			Port:          intEnv("DB_PORT", 5432),
			User:          env("DB_USER", ""),
			Password:      getenv("DB_PASSWORD"),
			Name:          env("DB_NAME", ""),
			SSLMode:       sslMode,
			TLSSkipVerify: relaxedTLS(sslMode),
			MaxConns:      intEnv("DB_MAX_CONNS", database.DefaultMaxConns),
		},
		Addr:               fmt.Sprintf(":%d", intEnv("PORT", 3000)),
		UploadDir:          env("UPLOAD_DIR", "public/uploads"),
		UploadMaxBytes:     int64(intEnv("UPLOAD_MAX_BYTES", int(uploads.DefaultMaxBytes))),
		AllowedOrigins:     parseAllowedOrigins(env("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerMinute: intEnv("RATE_LIMIT_PER_MINUTE", 0),
		Logging: logging.Config{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
	}

	interval, err := time.ParseDuration(env("DB_HEALTH_INTERVAL", "30s"))
	if err != nil {
		problems = append(problems, "DB_HEALTH_INTERVAL must be a duration such as 30s")
	}
	cfg.HealthInterval = interval

	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

func (c Config) validate() []string {
	var problems []string

	if c.Database.Host == "" {
		problems = append(problems, "DB_HOST is required")
	}
	if c.Database.User == "" {
		problems = append(problems, "DB_USER is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		problems = append(problems, "DB_PORT must be between 1 and 65535")
	}
	if c.Database.MaxConns < 1 {
		problems = append(problems, "DB_MAX_CONNS must be positive")
	}

	validSSLModes := map[string]bool{"disable": true, "allow": true, "prefer": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[c.Database.SSLMode] {
		problems = append(problems, "DB_SSLMODE must be a libpq sslmode")
	}

	if c.UploadMaxBytes < 1 {
		problems = append(problems, "UPLOAD_MAX_BYTES must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		problems = append(problems, "RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.HealthInterval < 0 {
		problems = append(problems, "DB_HEALTH_INTERVAL must not be negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	return problems
}

// relaxedTLS skips certificate checks for encrypted modes that do not ask for
// verification, so self-signed managed-database certificates are accepted.
func relaxedTLS(sslMode string) bool {
	switch sslMode {
	case "require", "prefer", "allow":
		return true
	}
	return false
}

func parseAllowedOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	var origins []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
