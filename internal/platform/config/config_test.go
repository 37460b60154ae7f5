package config

import (
	"testing"
	"time"
)

// clearEnv unsets all MCQ_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"MCQ_SERVER_PORT",
		"MCQ_SERVER_HOST",
		"MCQ_DATABASE_URL",
		"MCQ_DATABASE_MAX_CONNS",
		"MCQ_DATABASE_MIN_CONNS",
		"MCQ_CACHE_URL",
		"MCQ_EVENT_AMQP_URL",
		"MCQ_EVENT_EXCHANGE",
		"MCQ_AUTH_JWT_SECRET",
		"MCQ_AUTH_ADMIN_EMAILS",
		"MCQ_SESSION_FRESHNESS",
		"MCQ_CORS_ALLOW_ORIGINS",
		"MCQ_LOG_LEVEL",
		"MCQ_LOG_FORMAT",
		"MCQ_CONTENT_PATH",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Session.Freshness != 7*24*time.Hour {
		t.Errorf("Session.Freshness = %v, want 168h", cfg.Session.Freshness)
	}
	if cfg.ContentPath != "./chapters" {
		t.Errorf("ContentPath = %q, want ./chapters", cfg.ContentPath)
	}
	if cfg.Event.Exchange != "mcq.events" {
		t.Errorf("Event.Exchange = %q, want mcq.events", cfg.Event.Exchange)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCQ_SERVER_PORT", "9090")
	t.Setenv("MCQ_SESSION_FRESHNESS", "48h")
	t.Setenv("MCQ_AUTH_ADMIN_EMAILS", "a@example.com, b@example.com")
	t.Setenv("MCQ_CORS_ALLOW_ORIGINS", "https://mcq.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Session.Freshness != 48*time.Hour {
		t.Errorf("Session.Freshness = %v, want 48h", cfg.Session.Freshness)
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "b@example.com" {
		t.Errorf("Auth.AdminEmails = %v, want two trimmed entries", cfg.Auth.AdminEmails)
	}
	if len(cfg.CORS.AllowOrigins) != 1 || cfg.CORS.AllowOrigins[0] != "https://mcq.example.com" {
		t.Errorf("CORS.AllowOrigins = %v", cfg.CORS.AllowOrigins)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCQ_SERVER_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want fallback 8080", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty-content-path", func(c *Config) { c.ContentPath = "" }, true},
		{"zero-freshness", func(c *Config) { c.Session.Freshness = 0 }, true},
		{"bad-port", func(c *Config) { c.Server.Port = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
