package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgch "PriceCast/pkg/clickhouse"
	applogger "PriceCast/pkg/logger"
)

// CHSeriesSource loads candles from a ClickHouse table keyed by symbol and timeframe.
type CHSeriesSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.SeriesSource = (*CHSeriesSource)(nil)

func NewCHSeriesSource(ch *pkgch.Client, table string, l *applogger.Logger) *CHSeriesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesSource{db: ch.DB(), table: table, l: l}
}

func (s *CHSeriesSource) Name() string { return "clickhouse" }

// CandleSchema returns the DDL for the candle table.
func CandleSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol     LowCardinality(String),
            timeframe  LowCardinality(String),
            open_time  DateTime64(3, 'UTC'),
            close_time DateTime64(3, 'UTC'),
            open       Float64,
            high       Float64,
            low        Float64,
            close      Float64,
            volume     Float64,
            average    Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, timeframe, close_time)
    `, table)}
}

func (s *CHSeriesSource) LoadSeries(ctx context.Context, symbol string, tf domrepo.Timeframe) (models.Series, error) {
	start := time.Now()
	const qtpl = `
        SELECT open_time, close_time, open, high, low, close, volume, average
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ?
        ORDER BY close_time ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(tf))
	if err != nil {
		s.l.Error("clickhouse load_series query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return models.Series{}, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	series := models.Series{Symbol: symbol, Timeframe: string(tf), Observations: make([]models.Observation, 0, 1024)}
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.OpenTime, &o.CloseTime, &o.Open, &o.High, &o.Low, &o.Close, &o.Volume, &o.Average); err != nil {
			return models.Series{}, fmt.Errorf("scan candle: %w: %w", domain.ErrData, err)
		}
		o.OpenTime, o.CloseTime = o.OpenTime.UTC(), o.CloseTime.UTC()
		series.Observations = append(series.Observations, o)
	}
	if err := rows.Err(); err != nil {
		return models.Series{}, fmt.Errorf("rows: %w", err)
	}
	if err := series.Validate(); err != nil {
		return models.Series{}, fmt.Errorf("%w: %w", domain.ErrData, err)
	}

	s.l.Info("clickhouse load_series ok",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}
