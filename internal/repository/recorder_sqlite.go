package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	applogger "PriceCast/pkg/logger"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
	l  *applogger.Logger
}

var _ domrepo.Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, l *applogger.Logger) (*SQLiteRecorder, error) {
	if l == nil {
		l = applogger.Nop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, l: l}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("sqlite recorder opened", applogger.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL UNIQUE,
			symbol          TEXT NOT NULL,
			timeframe       TEXT NOT NULL,
			model           TEXT NOT NULL,
			window_size     INTEGER,
			trained         INTEGER,
			final_loss      REAL,
			predicted_at    INTEGER,
			predicted_value REAL,
			last_actual     REAL,
			validation_size INTEGER,
			charts          TEXT,
			finished_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON forecast_runs(symbol, finished_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordForecast(ctx context.Context, rep *models.ForecastReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := rep.Summarize()
	res, err := r.db.ExecContext(ctx, `INSERT INTO forecast_runs
		(run_id, symbol, timeframe, model, window_size, trained, final_loss,
		 predicted_at, predicted_value, last_actual, validation_size, charts, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.RunID, s.Symbol, s.Timeframe, s.Model, s.WindowSize, s.Trained, s.FinalLoss,
		s.PredictedAt.UnixMilli(), s.PredictedValue, s.LastActual, s.ValidationSize,
		strings.Join(rep.Charts, ","), s.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert forecast run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		r.l.Debug("forecast run recorded", applogger.String("run_id", s.RunID), applogger.Int64("row", id))
	}
	return nil
}

func (r *SQLiteRecorder) Recent(ctx context.Context, symbol string, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		run_id, symbol, timeframe, model, window_size, trained, final_loss,
		predicted_at, predicted_value, last_actual, validation_size, finished_at
		FROM forecast_runs
		WHERE ? = '' OR symbol = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query forecast runs: %w", err)
	}
	defer rows.Close()

	var out []models.Summary
	for rows.Next() {
		var s models.Summary
		var predictedAt, finishedAt int64
		if err := rows.Scan(&s.RunID, &s.Symbol, &s.Timeframe, &s.Model, &s.WindowSize, &s.Trained, &s.FinalLoss,
			&predictedAt, &s.PredictedValue, &s.LastActual, &s.ValidationSize, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		s.PredictedAt = time.UnixMilli(predictedAt).UTC()
		s.FinishedAt = time.UnixMilli(finishedAt).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.l.Info("closing sqlite recorder")
	return r.db.Close()
}
