package repository

import (
	"context"
	"database/sql"
	"fmt"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgch "PriceCast/pkg/clickhouse"
)

// CHRecorder appends run history to a ClickHouse table.
type CHRecorder struct {
	db    *sql.DB
	table string
}

var _ domrepo.Recorder = (*CHRecorder)(nil)

func NewCHRecorder(ch *pkgch.Client, table string) *CHRecorder {
	return &CHRecorder{db: ch.DB(), table: table}
}

// RunSchema returns the DDL for the run history table.
func RunSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id          String,
            symbol          LowCardinality(String),
            timeframe       LowCardinality(String),
            model           LowCardinality(String),
            window_size     UInt32,
            trained         Bool,
            final_loss      Float64,
            predicted_at    DateTime64(3, 'UTC'),
            predicted_value Float64,
            last_actual     Float64,
            validation_size UInt32,
            charts          Array(String),
            finished_at     DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        ORDER BY (symbol, finished_at)
    `, table)}
}

func (r *CHRecorder) RecordForecast(ctx context.Context, rep *models.ForecastReport) error {
	s := rep.Summarize()
	q := fmt.Sprintf(`INSERT INTO %s
        (run_id, symbol, timeframe, model, window_size, trained, final_loss,
         predicted_at, predicted_value, last_actual, validation_size, charts, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table)
	charts := rep.Charts
	if charts == nil {
		charts = []string{}
	}
	_, err := r.db.ExecContext(ctx, q,
		s.RunID, s.Symbol, s.Timeframe, s.Model, uint32(s.WindowSize), s.Trained, s.FinalLoss,
		s.PredictedAt, s.PredictedValue, s.LastActual, uint32(s.ValidationSize), charts, s.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert forecast run: %w", err)
	}
	return nil
}

func (r *CHRecorder) Recent(ctx context.Context, symbol string, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	q := fmt.Sprintf(`
        SELECT run_id, symbol, timeframe, model, window_size, trained, final_loss,
               predicted_at, predicted_value, last_actual, validation_size, finished_at
        FROM %s
        WHERE ? = '' OR symbol = ?
        ORDER BY finished_at DESC
        LIMIT ?
    `, r.table)
	rows, err := r.db.QueryContext(ctx, q, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query forecast runs: %w", err)
	}
	defer rows.Close()

	var out []models.Summary
	for rows.Next() {
		var s models.Summary
		var window, validation uint32
		if err := rows.Scan(&s.RunID, &s.Symbol, &s.Timeframe, &s.Model, &window, &s.Trained, &s.FinalLoss,
			&s.PredictedAt, &s.PredictedValue, &s.LastActual, &validation, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		s.WindowSize, s.ValidationSize = int(window), int(validation)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close is a no-op; the ClickHouse client is owned by the caller.
func (r *CHRecorder) Close() error { return nil }
