// Package app wires configuration, stores, caches, and the run modes into a
// single application object.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"alphawatch/internal/config"
)

// App is the top-level application. It owns the wired dependencies and runs
// one of the configured modes until the context is cancelled.
type App struct {
	cfg     *config.Config
	deps    *Dependencies
	cleanup func()
	logger  *slog.Logger
}

// New wires all dependencies for the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, cleanup, err := Wire(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return &App{
		cfg:     cfg,
		deps:    deps,
		cleanup: cleanup,
		logger:  logger,
	}, nil
}

// Run starts the application in the configured mode and blocks until the
// context is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
	)
	a.logger.DebugContext(ctx, "effective configuration",
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	switch a.cfg.Mode {
	case config.ModeEngine:
		return a.runEngine(ctx)
	case config.ModeServer:
		return a.runServer(ctx)
	case config.ModeFull:
		return a.runFull(ctx)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// Close releases all resources held by the application.
func (a *App) Close() {
	a.cleanup()
}
