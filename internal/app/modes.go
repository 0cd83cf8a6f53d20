package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"alphawatch/internal/alert"
	"alphawatch/internal/bot"
	"alphawatch/internal/config"
	"alphawatch/internal/engine"
	"alphawatch/internal/feed"
	"alphawatch/internal/platform/alpaca"
	"alphawatch/internal/server"
	"alphawatch/internal/server/handler"
	"alphawatch/internal/server/ws"
	"alphawatch/internal/service"
)

const shutdownGrace = 10 * time.Second

// buildOrchestrator assembles the evaluation engine from the wired
// dependencies: market data feed, alert pipeline, and the optional archiver.
func (a *App) buildOrchestrator() *engine.Orchestrator {
	market := alpaca.New(alpaca.Config{
		DataHost:    a.cfg.Feed.DataHost,
		TradingHost: a.cfg.Feed.TradingHost,
		APIKey:      a.cfg.Feed.APIKey,
		APISecret:   a.cfg.Feed.APISecret,
	})

	builder := feed.NewBuilder(
		market,
		market,
		feed.NewBotPerformanceProvider(a.deps.Bots),
		a.deps.Clock,
		a.logger,
	)

	gate := alert.NewGate(a.deps.Notifications, a.logger)
	dispatcher := alert.NewDispatcher(a.deps.Senders, a.cfg.Engine.ChannelTimeout.Duration, a.deps.Clock, a.logger)
	pipeline := alert.NewPipeline(
		a.deps.Thresholds,
		a.deps.Notifications,
		gate,
		dispatcher,
		a.deps.EventBus,
		a.deps.Clock,
		a.logger,
	)

	var archiver *engine.Archiver
	if a.deps.BlobWriter != nil {
		archiver = engine.NewArchiver(
			a.deps.Notifications,
			a.deps.BlobWriter,
			a.cfg.Engine.RetentionDays,
			a.cfg.Engine.ArchiveInterval.Duration,
			a.deps.Clock,
			a.logger,
		)
	}

	orch := engine.NewOrchestrator(
		a.deps.Thresholds,
		pipeline,
		builder,
		archiver,
		a.cfg.Engine.CycleInterval.Duration,
		a.logger,
	)
	orch.SetUserConcurrency(a.cfg.Engine.UserConcurrency)
	return orch
}

// buildServer assembles the HTTP + WebSocket surface from the wired
// dependencies.
func (a *App) buildServer(mode string) (*server.Server, *ws.Hub) {
	manager := bot.NewManager(a.deps.Bots, a.deps.LockManager, a.deps.Clock, a.logger)

	thresholdSvc := service.NewThresholdService(a.deps.Thresholds, a.deps.Clock, a.logger)
	notificationSvc := service.NewNotificationService(a.deps.Notifications, a.deps.Clock, a.logger)
	botSvc := service.NewBotService(a.deps.Bots, manager, a.deps.EventBus, a.deps.Clock, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(mode, a.deps.Clock.Now(), map[string]handler.Pinger{
			"postgres": a.deps.PG,
			"redis":    a.deps.Redis,
		}, a.logger),
		Thresholds:    handler.NewThresholdHandler(thresholdSvc, a.logger),
		Notifications: handler.NewNotificationHandler(notificationSvc, a.logger),
		Bots:          handler.NewBotHandler(botSvc, a.logger),
		Contacts:      handler.NewContactHandler(a.deps.Contacts, a.logger),
	}

	hub := ws.NewHub(a.deps.EventBus, a.logger, ws.Config{
		Mode:      mode,
		StartedAt: a.deps.Clock.Now(),
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.deps.RateLimiter, a.logger)

	return srv, hub
}

func (a *App) runEngine(ctx context.Context) error {
	return a.buildOrchestrator().Run(ctx)
}

func (a *App) runServer(ctx context.Context) error {
	srv, hub := a.buildServer(config.ModeServer)
	return runServerGroup(ctx, srv, hub, nil)
}

func (a *App) runFull(ctx context.Context) error {
	srv, hub := a.buildServer(config.ModeFull)
	return runServerGroup(ctx, srv, hub, a.buildOrchestrator())
}

// runServerGroup runs the hub, the HTTP server, and optionally the engine
// orchestrator as one errgroup. Cancellation of the parent context drains the
// HTTP server with a bounded grace period.
func runServerGroup(ctx context.Context, srv *server.Server, hub *ws.Hub, orch *engine.Orchestrator) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if orch != nil {
		g.Go(func() error {
			return orch.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
