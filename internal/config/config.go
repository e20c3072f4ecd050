package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the sync daemon's environment configuration
type Config struct {
	// Server
	Port  int
	Bind  string
	Debug bool

	// Storage. DatabaseURL selects Postgres; otherwise SQLitePath is used.
	DatabaseURL string
	SQLitePath  string

	// RabbitMQ. Empty disables the outcome consumer.
	RabbitMQURL string

	// Session
	SessionMaxAge int // seconds

	// Logging
	LogLevel string
	LogFile  string
}

// LoadEnvFiles copies variables from .env files into the environment.
// Missing files are skipped and variables already set win.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnvInt("PALABRAS_PORT", 8000),
		Bind:          getEnv("PALABRAS_BIND", "127.0.0.1"),
		Debug:         getEnvBool("PALABRAS_DEBUG", false),
		DatabaseURL:   getEnv("PALABRAS_DATABASE_URL", ""),
		SQLitePath:    getEnv("PALABRAS_SQLITE_PATH", ""),
		RabbitMQURL:   getEnv("PALABRAS_RABBITMQ_URL", ""),
		SessionMaxAge: getEnvInt("PALABRAS_SESSION_MAX_AGE", 86400*7), // 7 days
		LogLevel:      getEnv("PALABRAS_LOG_LEVEL", "info"),
		LogFile:       getEnv("PALABRAS_LOG_FILE", ""),
	}
}

// SessionDuration returns SessionMaxAge as a duration
func (c *Config) SessionDuration() time.Duration {
	if c.SessionMaxAge <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.SessionMaxAge) * time.Second
}

// UsePostgres reports whether the daemon should store data in Postgres
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
