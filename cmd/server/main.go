package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/teamprogress/internal/api"
	"github.com/mcoot/teamprogress/internal/config"
	"github.com/mcoot/teamprogress/internal/factory"
)

// sessionSweepInterval is how often expired sessions are dropped
const sessionSweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	app, err := factory.New(factory.ConfigFromEnv(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.AdminToken == "" {
		logger.Warn("TP_ADMIN_TOKEN not set, game data uploads are disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		ProgressService: app.ProgressService,
		TeamService:     app.TeamService,
		Graphs:          app.Graphs,
		Aggregator:      app.Aggregator,
		AdminToken:      cfg.AdminToken,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := app.AuthService.CleanExpiredSessions(); n > 0 {
					logger.Debug("expired sessions removed", slog.Int("count", n))
				}
			}
		}
	}()

	// Warm the graph cache; a missing graph is fine until an upload
	if _, err := app.Graphs.Get(ctx); err != nil {
		logger.Info("game data not loaded yet", slog.String("error", err.Error()))
	}

	logger.Info("server starting", slog.String("addr", server.Addr()), slog.String("storage", cfg.Storage))
	runErr := server.Run(ctx)
	if err := app.Close(); err != nil {
		logger.Warn("closing storage", slog.String("error", err.Error()))
	}
	if runErr != nil {
		logger.Error("server error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
