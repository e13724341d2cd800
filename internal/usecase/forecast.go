package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/services/chart"
	"PriceCast/internal/services/features"
	"PriceCast/internal/services/forecaster"
	"PriceCast/pkg/logger"
	pkgmetrics "PriceCast/pkg/metrics"
	"PriceCast/pkg/util"
)

// DefaultValidationRatio is used when a run names neither a split time nor a ratio.
const DefaultValidationRatio = 0.2

// ChartRenderer draws actual vs predicted comparisons and returns the written paths.
type ChartRenderer interface {
	Render(ctx context.Context, in chart.Input) ([]string, error)
}

// RunParams describes one forecast run.
type RunParams struct {
	Symbol     string
	Timeframe  domrepo.Timeframe
	Model      string
	WindowSize int
	Epochs     int
	// Train fits a fresh model and saves it; otherwise the model is loaded.
	Train         bool
	ModelLocation string
	// SplitTime routes labels closing at or after it to validation. When zero,
	// ValidationRatio picks the split instead.
	SplitTime       time.Time
	ValidationRatio float64
}

func (p RunParams) validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("symbol required: %w", domain.ErrData)
	}
	if !util.ValidSymbol(p.Symbol) {
		return fmt.Errorf("invalid symbol %q: %w", p.Symbol, domain.ErrData)
	}
	if !domrepo.IsValidTimeframe(p.Timeframe) {
		return fmt.Errorf("unsupported timeframe %q: %w", p.Timeframe, domain.ErrData)
	}
	if p.WindowSize < 1 {
		return fmt.Errorf("window size %d: %w", p.WindowSize, domain.ErrData)
	}
	if p.Train && p.Epochs < 1 {
		return fmt.Errorf("epochs %d: %w", p.Epochs, domain.ErrData)
	}
	if p.ModelLocation == "" {
		return fmt.Errorf("model location required: %w", domain.ErrData)
	}
	return nil
}

// ForecastUseCase runs the load, scale, train or load, predict, render and
// report cycle once per call.
type ForecastUseCase struct {
	source    domrepo.SeriesSource
	store     domrepo.ModelStore
	renderer  ChartRenderer
	report    io.Writer
	log       *logger.Logger
	metrics   domrepo.Metrics
	modelOpts []forecaster.Option
}

// NewForecastUseCase wires the run. renderer and report may be nil to skip charts
// and the textual report.
func NewForecastUseCase(
	source domrepo.SeriesSource,
	store domrepo.ModelStore,
	renderer ChartRenderer,
	report io.Writer,
	log *logger.Logger,
	metrics domrepo.Metrics,
	modelOpts ...forecaster.Option,
) *ForecastUseCase {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ForecastUseCase{
		source:    source,
		store:     store,
		renderer:  renderer,
		report:    report,
		log:       log,
		metrics:   metrics,
		modelOpts: modelOpts,
	}
}

// Execute performs one complete run. Any failure aborts with a *domain.StageError
// and no report.
func (uc *ForecastUseCase) Execute(ctx context.Context, p RunParams) (*models.ForecastReport, error) {
	if err := p.validate(); err != nil {
		return nil, domain.WrapStage(domain.StageLoad, err)
	}
	report := &models.ForecastReport{
		RunID:      uuid.NewString(),
		Symbol:     p.Symbol,
		Timeframe:  string(p.Timeframe),
		WindowSize: p.WindowSize,
		Trained:    p.Train,
		StartedAt:  time.Now().UTC(),
	}
	log := uc.log.With(logger.String("run_id", report.RunID), logger.String("symbol", p.Symbol))

	// load
	start := time.Now()
	series, err := uc.source.LoadSeries(ctx, p.Symbol, p.Timeframe)
	if err = uc.observe(domain.StageLoad, start, err); err != nil {
		return nil, err
	}
	log.Info("series loaded",
		logger.String("source", uc.source.Name()),
		logger.Int("observations", series.Len()),
	)

	// scale
	start = time.Now()
	prep, err := uc.prepare(series, p)
	if err = uc.observe(domain.StageScale, start, err); err != nil {
		return nil, err
	}
	report.ScaleMin, report.ScaleMax = prep.Scaler.Min, prep.Scaler.Max
	log.Info("windows built",
		logger.Int("train", len(prep.Windows.TrainY)),
		logger.Int("validation", len(prep.Windows.ValY)),
		logger.Float64("min", prep.Scaler.Min),
		logger.Float64("max", prep.Scaler.Max),
	)

	arch, err := forecaster.NewArchitecture(p.Model)
	if err != nil {
		return nil, domain.WrapStage(domain.StageTrain, fmt.Errorf("%w: %w", domain.ErrData, err))
	}
	report.Model = arch.Name()
	model, err := forecaster.New(arch, p.WindowSize, uc.store, log, uc.modelOpts...)
	if err != nil {
		return nil, uc.observe(domain.StageTrain, time.Now(), err)
	}

	if p.Train {
		start = time.Now()
		tr, err := model.Train(ctx, forecaster.TrainingSet{X: prep.Windows.TrainX, Y: prep.Windows.TrainY}, p.Epochs)
		if err = uc.observe(domain.StageTrain, start, err); err != nil {
			return nil, err
		}
		report.FinalLoss = tr.FinalLoss
		uc.metrics.RecordTrainingLoss(p.Symbol, tr.FinalLoss)

		start = time.Now()
		err = model.Save(ctx, p.ModelLocation)
		if err = uc.observe(domain.StagePersist, start, err); err != nil {
			return nil, err
		}
	} else {
		start = time.Now()
		err = model.Load(ctx, p.ModelLocation)
		if err = uc.observe(domain.StagePersist, start, err); err != nil {
			return nil, err
		}
	}

	// predict
	start = time.Now()
	scaledPred, err := model.PredictBatch(prep.Windows.ValX)
	var next float64
	if err == nil {
		next, err = model.Predict(prep.Next)
	}
	if err = uc.observe(domain.StagePredict, start, err); err != nil {
		return nil, err
	}

	report.Labels = prep.Windows.ValTimes
	report.Actual = features.InverseScale(prep.Windows.ValY, prep.Scaler)
	report.PredictedValue = prep.Scaler.Inverse(next)
	report.Predicted = append(features.InverseScale(scaledPred, prep.Scaler), report.PredictedValue)
	report.PredictedAt = series.Last().CloseTime.Add(p.Timeframe.Duration())

	// render
	if uc.renderer != nil {
		start = time.Now()
		paths, err := uc.renderer.Render(ctx, chart.Input{
			Symbol:      p.Symbol,
			Labels:      report.Labels,
			Actual:      report.Actual,
			Predicted:   report.Predicted,
			PredictedAt: report.PredictedAt,
		})
		if err = uc.observe(domain.StageRender, start, err); err != nil {
			return nil, err
		}
		report.Charts = paths
	}

	report.FinishedAt = time.Now().UTC()
	uc.metrics.RecordForecast(p.Symbol, report.PredictedValue)

	headline := Headline(report)
	if uc.report != nil {
		if _, err := fmt.Fprintln(uc.report, headline); err != nil {
			log.Warn("write report", logger.Error(err))
		}
	}
	log.Info(headline,
		logger.Float64("predicted", report.PredictedValue),
		logger.Time("predicted_at", report.PredictedAt),
		logger.Strings("charts", report.Charts),
	)
	return report, nil
}

func (uc *ForecastUseCase) prepare(series models.Series, p RunParams) (*features.Prepared, error) {
	split := p.SplitTime
	if split.IsZero() {
		ratio := p.ValidationRatio
		if ratio == 0 {
			ratio = DefaultValidationRatio
		}
		var err error
		split, err = features.SplitByRatio(series.CloseTimes(), p.WindowSize, ratio)
		if err != nil {
			return nil, err
		}
	}
	prep, err := features.Prepare(series, p.WindowSize, split)
	if err != nil {
		return nil, err
	}
	if len(prep.Windows.ValY) == 0 {
		return nil, fmt.Errorf("no validation windows close at or after %s: %w", split.Format(time.RFC3339), domain.ErrInsufficientData)
	}
	if p.Train && len(prep.Windows.TrainY) == 0 {
		return nil, fmt.Errorf("no training windows close before %s: %w", split.Format(time.RFC3339), domain.ErrInsufficientData)
	}
	return prep, nil
}

// observe records the stage duration and wraps err with its stage.
func (uc *ForecastUseCase) observe(stage domain.Stage, start time.Time, err error) error {
	uc.metrics.RecordStage(string(stage), time.Since(start))
	if err != nil {
		uc.metrics.RecordError(string(stage))
		return domain.WrapStage(stage, err)
	}
	return nil
}

// Headline is the one-line textual report of a run.
func Headline(r *models.ForecastReport) string {
	value := decimal.NewFromFloat(r.PredictedValue).Round(8)
	return fmt.Sprintf("Predicted price of %s for %s is: %s", r.Symbol, util.FormatDay(r.PredictedAt), value.String())
}
