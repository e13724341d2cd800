package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/logger"
	pkgmetrics "PriceCast/pkg/metrics"
)

// ErrNoForecast is returned by Latest before the first successful run.
var ErrNoForecast = errors.New("no forecast available yet")

// ForecastService serialises runs for the long-lived serve mode and fans
// completed reports out to the recorder and publisher.
type ForecastService struct {
	uc        *ForecastUseCase
	recorder  domrepo.Recorder
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	log       *logger.Logger

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest map[string]*models.ForecastReport
	last   *models.ForecastReport
}

func NewForecastService(uc *ForecastUseCase, recorder domrepo.Recorder, publisher domrepo.Publisher, metrics domrepo.Metrics, log *logger.Logger) *ForecastService {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ForecastService{
		uc:        uc,
		recorder:  recorder,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		latest:    make(map[string]*models.ForecastReport),
	}
}

// Run executes one forecast. Concurrent callers wait for the run in progress.
func (s *ForecastService) Run(ctx context.Context, p RunParams) (*models.ForecastReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.uc.Execute(ctx, p)
	if err != nil {
		s.metrics.RecordRun(p.Symbol, "error")
		return nil, err
	}
	s.metrics.RecordRun(p.Symbol, "ok")

	s.mu.Lock()
	s.latest[report.Symbol] = report
	s.last = report
	s.mu.Unlock()

	s.emit(ctx, report)
	return report, nil
}

// emit hands the report to the sinks; their failures never fail the run.
func (s *ForecastService) emit(ctx context.Context, r *models.ForecastReport) {
	if s.recorder != nil {
		if err := s.recorder.RecordForecast(ctx, r); err != nil {
			s.metrics.RecordError("record")
			s.log.Error("record forecast", logger.String("run_id", r.RunID), logger.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishForecast(ctx, r.Summarize()); err != nil {
			s.metrics.RecordError("publish")
			s.log.Error("publish forecast", logger.String("run_id", r.RunID), logger.Error(err))
		}
	}
}

// Latest returns the newest report for symbol, or the newest overall when
// symbol is empty.
func (s *ForecastService) Latest(symbol string) (*models.ForecastReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.last
	if symbol != "" {
		r = s.latest[symbol]
	}
	if r == nil {
		return nil, ErrNoForecast
	}
	return r, nil
}

// History returns recorded runs, newest first.
func (s *ForecastService) History(ctx context.Context, symbol string, limit int) ([]models.Summary, error) {
	if s.recorder == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}
	out, err := s.recorder.Recent(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return out, nil
}

// Close releases the sinks.
func (s *ForecastService) Close() error {
	var errs []error
	if s.recorder != nil {
		errs = append(errs, s.recorder.Close())
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	return errors.Join(errs...)
}
