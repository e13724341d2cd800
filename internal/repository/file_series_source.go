package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// FileSeriesSource reads series from <dir>/<symbol>-<timeframe>.json.
type FileSeriesSource struct {
	dir string
	l   *applogger.Logger
}

var _ domrepo.SeriesSource = (*FileSeriesSource)(nil)

func NewFileSeriesSource(dir string, l *applogger.Logger) *FileSeriesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &FileSeriesSource{dir: dir, l: l}
}

func (s *FileSeriesSource) Name() string { return "file" }

// SeriesPath is the file a (symbol, timeframe) pair is read from.
func SeriesPath(dir, symbol string, tf domrepo.Timeframe) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", symbol, tf))
}

// flexTime accepts RFC 3339 text, unix seconds or unix milliseconds, quoted or not.
type flexTime struct {
	time.Time
	set bool
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	parsed, ok := util.ParseTime(raw)
	if !ok {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	t.Time, t.set = parsed, true
	return nil
}

// seriesRecord is one element of a series file. Numbers are usually strings.
// The short {date, price} form is accepted as well.
type seriesRecord struct {
	OpenTime  flexTime            `json:"openTime"`
	CloseTime flexTime            `json:"closeTime"`
	Open      decimal.NullDecimal `json:"open"`
	High      decimal.NullDecimal `json:"high"`
	Low       decimal.NullDecimal `json:"low"`
	Close     decimal.NullDecimal `json:"close"`
	Volume    decimal.NullDecimal `json:"volume"`
	Average   decimal.NullDecimal `json:"average"`

	Date  flexTime            `json:"date"`
	Price decimal.NullDecimal `json:"price"`
}

func (r seriesRecord) observation(i int) (models.Observation, error) {
	closeTime, closeVal := r.CloseTime, r.Close
	if !closeTime.set {
		closeTime = r.Date
	}
	if !closeVal.Valid {
		closeVal = r.Price
	}
	if !closeTime.set {
		return models.Observation{}, fmt.Errorf("record %d: missing closeTime", i)
	}
	if !closeVal.Valid {
		return models.Observation{}, fmt.Errorf("record %d: missing close", i)
	}

	c := closeVal.Decimal.InexactFloat64()
	or := func(d decimal.NullDecimal) float64 {
		if d.Valid {
			return d.Decimal.InexactFloat64()
		}
		return c
	}
	o := models.Observation{
		OpenTime:  closeTime.Time,
		CloseTime: closeTime.Time,
		Open:      or(r.Open),
		High:      or(r.High),
		Low:       or(r.Low),
		Close:     c,
		Average:   or(r.Average),
	}
	if r.OpenTime.set {
		o.OpenTime = r.OpenTime.Time
	}
	if r.Volume.Valid {
		o.Volume = r.Volume.Decimal.InexactFloat64()
	}
	return o, nil
}

func (s *FileSeriesSource) LoadSeries(ctx context.Context, symbol string, tf domrepo.Timeframe) (models.Series, error) {
	if err := ctx.Err(); err != nil {
		return models.Series{}, err
	}
	start := time.Now()
	path := SeriesPath(s.dir, symbol, tf)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Series{}, fmt.Errorf("no series for %s/%s at %s: %w", symbol, tf, path, domain.ErrData)
		}
		return models.Series{}, fmt.Errorf("read series: %w: %w", domain.ErrData, err)
	}

	series, err := ParseSeries(b, symbol, tf)
	if err != nil {
		s.l.Error("series file rejected", applogger.String("path", path), applogger.Error(err))
		return models.Series{}, err
	}
	s.l.Debug("series loaded",
		applogger.String("path", path),
		applogger.Int("rows", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// ParseSeries decodes and validates the JSON array form of a series.
func ParseSeries(b []byte, symbol string, tf domrepo.Timeframe) (models.Series, error) {
	var records []seriesRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return models.Series{}, fmt.Errorf("decode series: %w: %w", domain.ErrData, err)
	}
	series := models.Series{Symbol: symbol, Timeframe: string(tf), Observations: make([]models.Observation, 0, len(records))}
	for i, r := range records {
		o, err := r.observation(i)
		if err != nil {
			return models.Series{}, fmt.Errorf("%w: %w", domain.ErrData, err)
		}
		series.Observations = append(series.Observations, o)
	}
	if err := series.Validate(); err != nil {
		return models.Series{}, fmt.Errorf("%w: %w", domain.ErrData, err)
	}
	return series, nil
}
