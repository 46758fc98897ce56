package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseDriver string
	DatabaseURL    string

	// SessionTTL is the sliding inactivity window: each successful
	// validation extends a session to now + SessionTTL.
	SessionTTL time.Duration
	// HashIterations is the PBKDF2 cost parameter for password digests.
	HashIterations int

	RedisAddr      string
	IdempotencyTTL time.Duration

	CORSOrigins    []string
	BodyLimitBytes int64

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Env:                      getenv("APP_ENV", "dev"),
		HTTPAddr:                 getenv("HTTP_ADDR", ":8080"),
		DatabaseDriver:           getenv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:              getenv("DATABASE_URL", "file:marksportal.db?_busy_timeout=5000&_txlock=immediate"),
		RedisAddr:                getenv("REDIS_ADDR", ""),
		OTELServiceName:          getenv("OTEL_SERVICE_NAME", "marks-portal-service"),
		OTELEnvironment:          getenv("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		CORSOrigins:              splitList(getenv("CORS_ORIGINS", "")),
	}

	var err error
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", 8*time.Hour); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.HashIterations, err = getenvInt("HASH_ITERATIONS", 210_000); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.IdempotencyTTL, err = getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.BodyLimitBytes, err = getenvInt64("BODY_LIMIT_BYTES", 1<<20); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.OTELExporterOTLPInsecure, err = getenvBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.OTELMetricsEnabled, err = getenvBool("OTEL_METRICS_ENABLED", false); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.OTELTracingEnabled, err = getenvBool("OTEL_TRACING_ENABLED", false); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.OTELLogsEnabled, err = getenvBool("OTEL_LOGS_ENABLED", false); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.OTELMetricsExportInterval, err = getenvDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 20*time.Second); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.ShutdownHTTPDrainTimeout, err = getenvDuration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 10*time.Second); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	if cfg.ShutdownObservabilityTimeout, err = getenvDuration("SHUTDOWN_OBSERVABILITY_TIMEOUT", 5*time.Second); err != nil {
		return fail(ctx, cfg.Env, err)
	}

	if err := cfg.Validate(); err != nil {
		return fail(ctx, cfg.Env, err)
	}
	recordConfigValidationEvent(ctx, cfg.Env, "success", "none")
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("validate config: HTTP_ADDR is required")
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("validate config: DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("validate config: DATABASE_URL is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("validate config: SESSION_TTL must be positive")
	}
	if c.HashIterations <= 0 {
		return fmt.Errorf("validate config: HASH_ITERATIONS must be positive")
	}
	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("validate config: BODY_LIMIT_BYTES must be positive")
	}
	return nil
}

func fail(ctx context.Context, profile string, err error) (*Config, error) {
	recordConfigValidationEvent(ctx, profile, "failure", classifyConfigLoadError(err))
	return nil, err
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getenvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getenvInt64(key string, fallback int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
