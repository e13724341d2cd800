package repository

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
)

// SeriesSource resolves a (symbol, timeframe) pair to a validated series.
type SeriesSource interface {
	LoadSeries(ctx context.Context, symbol string, tf Timeframe) (models.Series, error)
	Name() string
}

// Artifact is the persisted unit of a model: topology manifest plus raw weights.
type Artifact struct {
	Manifest []byte
	Weights  []byte
}

// ModelStore persists model artifacts under an opaque location.
type ModelStore interface {
	Save(ctx context.Context, location string, a *Artifact) error
	Load(ctx context.Context, location string) (*Artifact, error)
}

// Recorder keeps a history of completed forecast runs.
type Recorder interface {
	RecordForecast(ctx context.Context, r *models.ForecastReport) error
	// Recent returns up to limit runs, newest first. An empty symbol matches all.
	Recent(ctx context.Context, symbol string, limit int) ([]models.Summary, error)
	Close() error
}

// Publisher announces completed forecasts to downstream consumers.
type Publisher interface {
	PublishForecast(ctx context.Context, s models.Summary) error
	Close() error
}

// Metrics records run-level observability signals.
type Metrics interface {
	RecordStage(stage string, d time.Duration)
	RecordError(stage string)
	RecordTrainingLoss(symbol string, loss float64)
	RecordForecast(symbol string, value float64)
	RecordRun(symbol, result string)
}
