package models

import "time"

// TrainingReport summarises one training call.
type TrainingReport struct {
	Epochs    int
	Examples  int
	Losses    []float64 // mean loss per epoch
	FinalLoss float64
	Duration  time.Duration
}

// ForecastReport is the result of one complete forecast run.
// Actual and Predicted are in real price units; Predicted carries the headline
// forecast as its final element so it has one more entry than Actual.
type ForecastReport struct {
	RunID          string
	Symbol         string
	Timeframe      string
	Model          string
	WindowSize     int
	Trained        bool
	FinalLoss      float64
	ScaleMin       float64
	ScaleMax       float64
	PredictedAt    time.Time
	PredictedValue float64
	Labels         []time.Time
	Actual         []float64
	Predicted      []float64
	Charts         []string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Summary is the compact form of a report used by sinks that do not need the series.
type Summary struct {
	RunID          string    `json:"run_id"`
	Symbol         string    `json:"symbol"`
	Timeframe      string    `json:"timeframe"`
	Model          string    `json:"model"`
	WindowSize     int       `json:"window_size"`
	Trained        bool      `json:"trained"`
	FinalLoss      float64   `json:"final_loss"`
	PredictedAt    time.Time `json:"predicted_at"`
	PredictedValue float64   `json:"predicted_value"`
	LastActual     float64   `json:"last_actual"`
	ValidationSize int       `json:"validation_size"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Summarize builds the compact form of r.
func (r *ForecastReport) Summarize() Summary {
	s := Summary{
		RunID:          r.RunID,
		Symbol:         r.Symbol,
		Timeframe:      r.Timeframe,
		Model:          r.Model,
		WindowSize:     r.WindowSize,
		Trained:        r.Trained,
		FinalLoss:      r.FinalLoss,
		PredictedAt:    r.PredictedAt,
		PredictedValue: r.PredictedValue,
		ValidationSize: len(r.Actual),
		FinishedAt:     r.FinishedAt,
	}
	if len(r.Actual) > 0 {
		s.LastActual = r.Actual[len(r.Actual)-1]
	}
	return s
}
