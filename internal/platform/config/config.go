// Package config loads application configuration from environment variables.
// All variables use the MCQ_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Event       EventConfig
	Auth        AuthConfig
	Session     SessionConfig
	CORS        CORSConfig
	Log         LogConfig
	ContentPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings for the progress store.
// An empty URL keeps progress in memory only.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings for the session cache.
// An empty URL keeps cached sessions in memory only.
type CacheConfig struct {
	URL string
}

// EventConfig holds AMQP settings for the domain event publisher.
type EventConfig struct {
	AMQPURL  string
	Exchange string
}

// AuthConfig holds identity verification settings.
type AuthConfig struct {
	JWTSecret   string
	AdminEmails []string
}

// SessionConfig holds quiz session persistence settings.
type SessionConfig struct {
	Freshness time.Duration // max age before a cached session is discarded
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowOrigins []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultFreshness is the maximum age of a resumable cached session.
const DefaultFreshness = 7 * 24 * time.Hour

// Load reads configuration from environment variables with MCQ_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("MCQ_SERVER_PORT", 8080),
			Host: envStr("MCQ_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("MCQ_DATABASE_URL", ""),
			MaxConns: envInt("MCQ_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("MCQ_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("MCQ_CACHE_URL", ""),
		},
		Event: EventConfig{
			AMQPURL:  envStr("MCQ_EVENT_AMQP_URL", ""),
			Exchange: envStr("MCQ_EVENT_EXCHANGE", "mcq.events"),
		},
		Auth: AuthConfig{
			JWTSecret:   envStr("MCQ_AUTH_JWT_SECRET", ""),
			AdminEmails: envList("MCQ_AUTH_ADMIN_EMAILS"),
		},
		Session: SessionConfig{
			Freshness: envDuration("MCQ_SESSION_FRESHNESS", DefaultFreshness),
		},
		CORS: CORSConfig{
			AllowOrigins: envListDefault("MCQ_CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level:  envStr("MCQ_LOG_LEVEL", "info"),
			Format: envStr("MCQ_LOG_FORMAT", "json"),
		},
		ContentPath: envStr("MCQ_CONTENT_PATH", "./chapters"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ContentPath == "" {
		return fmt.Errorf("MCQ_CONTENT_PATH is required")
	}
	if c.Session.Freshness <= 0 {
		return fmt.Errorf("MCQ_SESSION_FRESHNESS must be positive, got %v", c.Session.Freshness)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("MCQ_SERVER_PORT out of range: %d", c.Server.Port)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	return envListDefault(key, nil)
}

func envListDefault(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
