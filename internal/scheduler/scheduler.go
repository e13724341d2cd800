package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/logger"
)

// Runner executes one forecast.
type Runner interface {
	Run(ctx context.Context, p usecase.RunParams) (*models.ForecastReport, error)
}

// Scheduler re-runs the configured forecast on a cron spec (with seconds).
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	params  usecase.RunParams
	log     *logger.Logger
	timeout time.Duration
	ctx     context.Context
}

func New(ctx context.Context, runner Runner, params usecase.RunParams, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:  runner,
		params:  params,
		log:     log,
		timeout: 30 * time.Minute,
		ctx:     ctx,
	}
}

// Register adds the forecast job under spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register forecast job %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the forecast job immediately.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	s.log.Info("scheduled forecast starting", logger.String("symbol", s.params.Symbol))
	r, err := s.runner.Run(ctx, s.params)
	if err != nil {
		stage, _ := domain.StageOf(err)
		s.log.Error("scheduled forecast failed",
			logger.String("symbol", s.params.Symbol),
			logger.String("stage", string(stage)),
			logger.Error(err),
		)
		return
	}
	s.log.Info("scheduled forecast finished", logger.String("run_id", r.RunID))
}
