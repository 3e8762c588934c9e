package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SignalDeck/internal/domain/repository"
	mid "SignalDeck/internal/middleware"
	"SignalDeck/internal/usecase"
	"SignalDeck/pkg/config"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	poller   *usecase.FeedPoller
	sched    *usecase.Scheduler
	pipeline *mid.EventPipeline
	eventPub repository.EventPublisher
	archive  repository.HistoryArchive
	handler  xhttp.Handler
	closer   func()

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	poller *usecase.FeedPoller,
	sched *usecase.Scheduler,
	pipeline *mid.EventPipeline,
	eventPub repository.EventPublisher,
	archive repository.HistoryArchive,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		poller:   poller,
		sched:    sched,
		pipeline: pipeline,
		eventPub: eventPub,
		archive:  archive,
		handler:  handler,
	}
}

// SetCloser registers an extra cleanup hook run during shutdown.
func (a *App) SetCloser(fn func()) { a.closer = fn }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.archive.Init(ctx); err != nil {
		a.logger.Warn("history archive init", applogger.Error(err))
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	a.pipeline.Start(ctx)
	a.sched.Start(ctx)
	a.poller.Start(ctx)
	a.logger.Info("poller started",
		applogger.String("feed", a.cfg.Feed.URL),
		applogger.Duration("interval", a.cfg.Feed.PollInterval),
	)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.poller.Stop()
	a.sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	a.pipeline.Stop()
	if err := a.eventPub.Close(); err != nil {
		a.logger.Warn("event publisher close error", applogger.Error(err))
	}
	if err := a.archive.Close(); err != nil {
		a.logger.Warn("history archive close error", applogger.Error(err))
	}
	if a.closer != nil {
		a.closer()
	}

	a.logger.Info("shutdown complete")
	return nil
}
