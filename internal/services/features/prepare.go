package features

import (
	"fmt"
	"math"
	"time"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
)

// Prepared is everything the model stages need from a series.
type Prepared struct {
	Scaler  Scaler
	Scaled  []float64
	Windows *WindowSet
	Next    []float64
}

// Prepare fits the scaler over the whole closing series, then builds the windows
// and the next-step window with that single scaler.
//
// The fit includes the validation period, so training inputs are normalised with
// knowledge of future extremes.
func Prepare(series models.Series, windowSize int, split time.Time) (*Prepared, error) {
	closes := series.Closes()
	scaler, err := FitScale(closes)
	if err != nil {
		return nil, err
	}
	scaled, err := Scale(closes, scaler)
	if err != nil {
		return nil, err
	}
	windows, err := BuildWindows(scaled, series.CloseTimes(), windowSize, split)
	if err != nil {
		return nil, err
	}
	next, err := NextWindow(closes, windowSize, scaler)
	if err != nil {
		return nil, err
	}
	return &Prepared{Scaler: scaler, Scaled: scaled, Windows: windows, Next: next}, nil
}

// SplitByRatio returns the close time that leaves roughly the trailing ratio of
// the labelled examples in the validation partition.
func SplitByRatio(closeTimes []time.Time, windowSize int, ratio float64) (time.Time, error) {
	labels := len(closeTimes) - windowSize
	if labels <= 0 {
		return time.Time{}, fmt.Errorf("%d observations leave no labels for window %d: %w", len(closeTimes), windowSize, domain.ErrInsufficientData)
	}
	if !(ratio > 0 && ratio < 1) {
		return time.Time{}, fmt.Errorf("validation ratio %v outside (0,1): %w", ratio, domain.ErrData)
	}
	val := int(math.Ceil(float64(labels) * ratio))
	return closeTimes[len(closeTimes)-val], nil
}
