package repository

import (
	"context"
	"errors"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"
)

// CachedSeriesSource keeps loaded series in a cache for ttl.
type CachedSeriesSource struct {
	next  domrepo.SeriesSource
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domrepo.SeriesSource = (*CachedSeriesSource)(nil)

func NewCachedSeriesSource(next domrepo.SeriesSource, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedSeriesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedSeriesSource{next: next, cache: c, ttl: ttl, l: l}
}

func (s *CachedSeriesSource) Name() string { return s.next.Name() + "+cache" }

func (s *CachedSeriesSource) LoadSeries(ctx context.Context, symbol string, tf domrepo.Timeframe) (models.Series, error) {
	key := cache.GenerateKeyWithParams("series", s.next.Name(), symbol, tf)

	var cached models.Series
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		s.l.Debug("series cache hit", applogger.String("key", key))
		return cached, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.l.Warn("series cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	series, err := s.next.LoadSeries(ctx, symbol, tf)
	if err != nil {
		return models.Series{}, err
	}
	if err := s.cache.Set(ctx, key, series, s.ttl); err != nil {
		s.l.Warn("series cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return series, nil
}
