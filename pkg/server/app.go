package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	"PriceCast/internal/scheduler"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

// Resources are long-lived clients the App closes on shutdown. Nil entries are
// skipped.
type Resources []io.Closer

// App encapsulates the application lifecycle for both the one-shot run mode and
// the long-running serve mode.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	svc        *usecase.ForecastService
	httpServer *xhttp.Server
	resources  Resources
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, svc *usecase.ForecastService, httpServer *xhttp.Server, resources Resources) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		svc:        svc,
		httpServer: httpServer,
		resources:  resources,
	}
}

// RunOnce executes the configured forecast a single time.
func (a *App) RunOnce(ctx context.Context) (*models.ForecastReport, error) {
	p, err := usecase.ParamsFromConfig(a.cfg.Forecast)
	if err != nil {
		return nil, domain.WrapStage(domain.StageLoad, err)
	}
	a.log.Info("forecast run starting",
		applogger.String("symbol", p.Symbol),
		applogger.String("timeframe", string(p.Timeframe)),
		applogger.String("model", p.Model),
		applogger.Int("window", p.WindowSize),
		applogger.Bool("train", p.Train),
	)
	return a.svc.Run(ctx, p)
}

// Serve starts the HTTP API and, when enabled, the cron scheduler, then blocks
// until ctx is cancelled or an interrupt arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if a.cfg.Schedule.Enabled {
		p, err := usecase.ParamsFromConfig(a.cfg.Forecast)
		if err != nil {
			return err
		}
		sched = scheduler.New(ctx, a.svc, p, a.log)
		if err := sched.Register(a.cfg.Schedule.Cron); err != nil {
			return err
		}
		sched.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	if sched != nil {
		sched.Stop()
	}
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	return nil
}

// Close releases sinks and infrastructure clients.
func (a *App) Close() error {
	if err := a.svc.Close(); err != nil {
		a.log.Warn("close forecast sinks", applogger.Error(err))
	}
	for _, r := range a.resources {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			a.log.Debug("close resource", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return nil
}
