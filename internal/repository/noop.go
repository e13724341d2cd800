package repository

import (
	"context"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
)

// NoopRecorder is used when no run history backend is configured.
type NoopRecorder struct{}

var _ domrepo.Recorder = NoopRecorder{}

func (NoopRecorder) RecordForecast(context.Context, *models.ForecastReport) error  { return nil }
func (NoopRecorder) Recent(context.Context, string, int) ([]models.Summary, error) { return nil, nil }
func (NoopRecorder) Close() error                                                  { return nil }

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

var _ domrepo.Publisher = NoopPublisher{}

func (NoopPublisher) PublishForecast(context.Context, models.Summary) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }
