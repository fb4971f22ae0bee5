package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/teamprogress/internal/config"
	"github.com/mcoot/teamprogress/internal/dependencies/clock"
	"github.com/mcoot/teamprogress/internal/dependencies/random"
	"github.com/mcoot/teamprogress/internal/services/aggregate"
	"github.com/mcoot/teamprogress/internal/services/auth"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
	"github.com/mcoot/teamprogress/internal/services/progress"
	"github.com/mcoot/teamprogress/internal/services/progression"
	"github.com/mcoot/teamprogress/internal/services/team"
	"github.com/mcoot/teamprogress/internal/storage"
	"github.com/mcoot/teamprogress/internal/storage/memory"
	redisstorage "github.com/mcoot/teamprogress/internal/storage/redis"
	sqlitestorage "github.com/mcoot/teamprogress/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
	StorageTypeSQLite = config.StorageSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService     *auth.Service
	ProgressService *progress.Service
	TeamService     *team.Service
	Graphs          *gamegraph.Cache
	Memo            *progression.Memo
	Aggregator      *aggregate.Aggregator

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLiteConfig holds the database file settings (required if StorageType is "sqlite")
	SQLiteConfig *sqlitestorage.Config
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// TeamConfig holds configuration for the team service (optional)
	// If zero value, defaults to team.DefaultConfig()
	TeamConfig team.Config
	// MemoSize bounds the derived view cache; zero uses the default
	MemoSize int
}

// ConfigFromEnv maps the server configuration onto factory settings
func ConfigFromEnv(cfg config.Config, logger *slog.Logger) Config {
	limits := storage.Limits{Timeout: cfg.TxTimeout, MaxAttempts: cfg.TxMaxAttempts}

	out := Config{
		Logger:      logger,
		StorageType: cfg.Storage,
		AuthConfig:  auth.Config{SessionDuration: cfg.SessionDuration},
		TeamConfig: team.Config{
			DefaultTeamMax: cfg.DefaultTeamMax,
			CreateCooldown: cfg.TeamCreateCooldown,
			Limits:         limits,
			PublicURL:      cfg.PublicURL,
		},
		MemoSize: cfg.MemoSize,
	}
	if cfg.Storage == config.StorageRedis {
		rc := redisstorage.DefaultConfig()
		rc.URL = cfg.RedisURL
		out.RedisConfig = &rc
	}
	if cfg.Storage == config.StorageSQLite {
		sc := sqlitestorage.DefaultConfig()
		sc.Path = cfg.SQLitePath
		out.SQLiteConfig = &sc
	}
	return out
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	var closers []io.Closer
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	case StorageTypeSQLite:
		if cfg.SQLiteConfig == nil {
			return nil, errors.New("SQLiteConfig required when StorageType is sqlite")
		}
		sqliteStore, err := sqlitestorage.Open(*cfg.SQLiteConfig)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
		closers = append(closers, sqliteStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}
	teamCfg := cfg.TeamConfig
	if teamCfg == (team.Config{}) {
		teamCfg = team.DefaultConfig()
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), authCfg, teamCfg, cfg.MemoSize, logger)
	if err != nil {
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, teamCfg team.Config, memoSize int, logger *slog.Logger) (*App, error) {
	if memoSize <= 0 {
		memoSize = progression.DefaultMemoSize
	}
	memo, err := progression.NewMemo(memoSize)
	if err != nil {
		return nil, err
	}

	authService := auth.New(store, clk, rnd, logger, authCfg)
	progressService := progress.New(store, clk, logger, teamCfg.Limits)
	teamService := team.New(store, clk, rnd, logger, teamCfg)
	graphs := gamegraph.NewCache(store, logger)
	aggregator := aggregate.New(store, progressService, graphs, memo, logger)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		AuthService:     authService,
		ProgressService: progressService,
		TeamService:     teamService,
		Graphs:          graphs,
		Memo:            memo,
		Aggregator:      aggregator,
	}, nil
}

// Close releases storage connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
