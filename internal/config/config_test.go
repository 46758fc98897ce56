package config

import (
	"context"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Fatalf("expected default session ttl 8h, got %v", cfg.SessionTTL)
	}
	if cfg.HashIterations != 210_000 {
		t.Fatalf("expected default hash iterations, got %d", cfg.HashIterations)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected default sqlite driver, got %q", cfg.DatabaseDriver)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected parse error for malformed SESSION_TTL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("HASH_ITERATIONS", "50000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("expected 90m ttl, got %v", cfg.SessionTTL)
	}
	if cfg.HashIterations != 50000 {
		t.Fatalf("expected 50000 iterations, got %d", cfg.HashIterations)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	cfg := &Config{
		HTTPAddr:       ":8080",
		DatabaseDriver: "mysql",
		DatabaseURL:    "dsn",
		SessionTTL:     time.Hour,
		HashIterations: 1000,
		BodyLimitBytes: 1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported driver")
	}
}
