package models

import "time"

// Requests for the forecast HTTP endpoints. Zero values are filled from the
// running configuration by the handler after validation.

type ForecastRunRequest struct {
	Symbol     string `json:"symbol" validate:"omitempty,symbol"`
	Timeframe  string `json:"timeframe" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	Model      string `json:"model" validate:"omitempty,oneof=cnn rnn"`
	WindowSize int    `json:"window_size" validate:"gte=0,lte=2000"`
	Epochs     int    `json:"epochs" validate:"gte=0,lte=1000"`
	Train      *bool  `json:"train"`
	SplitTime  string `json:"split_time"`
}

type ChartRequest struct {
	Symbol string `param:"symbol" validate:"required,symbol"`
	Size   string `param:"size" default:"medium" validate:"oneof=small medium big"`
}

// ForecastResponse is the API view of a completed run.
type ForecastResponse struct {
	Summary
	ScaleMin  float64     `json:"scale_min"`
	ScaleMax  float64     `json:"scale_max"`
	Labels    []time.Time `json:"labels"`
	Actual    []float64   `json:"actual"`
	Predicted []float64   `json:"predicted"`
	Charts    []string    `json:"charts,omitempty"`
	Headline  string      `json:"headline"`
}
