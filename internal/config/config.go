package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jwebster45206/page-engine/pkg/environment"
)

type Config struct {
	Port        string     `env:"PORT"        envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL"   envDefault:"info"`
	LogLevel    slog.Level // parsed from LogLevelRaw

	WorldFile     string             `env:"WORLD_FILE"     envDefault:"data/worlds/small_town.json"`
	EnvWindow     time.Duration      `env:"ENV_WINDOW"     envDefault:"10m"`
	EnvPolicy     environment.Policy `env:"ENV_POLICY"     envDefault:"deterministic"`
	WorldSeed     int64              `env:"WORLD_SEED"     envDefault:"0"`
	HistoryLimit  int                `env:"HISTORY_LIMIT"  envDefault:"50"`
	SweepInterval time.Duration      `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// Session snapshots go to Redis when RedisURL is set.
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Tracing is off unless an OTLP HTTP endpoint is given.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.WorldFile == "" {
		errs = append(errs, errors.New("WORLD_FILE is required"))
	}
	if c.EnvWindow <= 0 {
		errs = append(errs, fmt.Errorf("ENV_WINDOW must be positive, got %s", c.EnvWindow))
	}
	if _, err := environment.ParsePolicy(string(c.EnvPolicy)); err != nil {
		errs = append(errs, fmt.Errorf("ENV_POLICY: %w", err))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must not be negative, got %s", c.SessionTTL))
	}
	return errors.Join(errs...)
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
