package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the server configuration, read from TP_* environment variables
type Config struct {
	Port       int        `env:"TP_PORT" envDefault:"8080"`
	Storage    string     `env:"TP_STORAGE" envDefault:"memory"`
	RedisURL   string     `env:"TP_REDIS_URL"`
	SQLitePath string     `env:"TP_SQLITE_PATH" envDefault:"teamprogress.db"`
	LogLevel   slog.Level `env:"TP_LOG_LEVEL" envDefault:"info"`

	TxTimeout     time.Duration `env:"TP_TX_TIMEOUT" envDefault:"5s"`
	TxMaxAttempts int           `env:"TP_TX_MAX_ATTEMPTS" envDefault:"10"`

	DefaultTeamMax     int           `env:"TP_DEFAULT_TEAM_MAX" envDefault:"10"`
	TeamCreateCooldown time.Duration `env:"TP_TEAM_CREATE_COOLDOWN" envDefault:"5m"`

	SessionDuration time.Duration `env:"TP_SESSION_DURATION" envDefault:"24h"`
	MemoSize        int           `env:"TP_MEMO_SIZE" envDefault:"4096"`

	// AdminToken guards graph uploads; empty disables them
	AdminToken string `env:"TP_ADMIN_TOKEN"`
	PublicURL  string `env:"TP_PUBLIC_URL" envDefault:"http://localhost:8080/team"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks combinations env parsing cannot
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("TP_REDIS_URL required when TP_STORAGE=redis")
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return errors.New("TP_SQLITE_PATH required when TP_STORAGE=sqlite")
		}
	default:
		return fmt.Errorf("invalid TP_STORAGE %q: must be memory, redis or sqlite", c.Storage)
	}
	if c.TxTimeout <= 0 {
		return errors.New("TP_TX_TIMEOUT must be positive")
	}
	if c.TxMaxAttempts < 1 {
		return errors.New("TP_TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.DefaultTeamMax < 1 {
		return errors.New("TP_DEFAULT_TEAM_MAX must be at least 1")
	}
	if c.TeamCreateCooldown < 0 {
		return errors.New("TP_TEAM_CREATE_COOLDOWN cannot be negative")
	}
	return nil
}

// Addr is the listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
