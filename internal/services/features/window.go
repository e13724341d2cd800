package features

import (
	"fmt"
	"time"

	"PriceCast/internal/domain"
)

// WindowSet holds supervised examples split into training and validation partitions.
// Example k of a partition is the window X[k] with label Y[k] observed at Times[k].
type WindowSet struct {
	WindowSize int

	TrainX     [][]float64
	TrainY     []float64
	TrainTimes []time.Time

	ValX     [][]float64
	ValY     []float64
	ValTimes []time.Time
}

// Len is the total number of windows across both partitions.
func (w *WindowSet) Len() int { return len(w.TrainY) + len(w.ValY) }

// BuildWindows turns an already scaled series into sliding windows.
//
// For every i in [windowSize, len(scaled)) the window is scaled[i-windowSize:i] and
// the label is scaled[i]. The example is routed to validation iff closeTimes[i] is
// not before split. Order within each partition follows the series.
func BuildWindows(scaled []float64, closeTimes []time.Time, windowSize int, split time.Time) (*WindowSet, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("window size %d: %w", windowSize, domain.ErrData)
	}
	if len(scaled) != len(closeTimes) {
		return nil, fmt.Errorf("series has %d values but %d timestamps: %w", len(scaled), len(closeTimes), domain.ErrData)
	}

	ws := &WindowSet{WindowSize: windowSize}
	for i := windowSize; i < len(scaled); i++ {
		x := make([]float64, windowSize)
		copy(x, scaled[i-windowSize:i])
		if closeTimes[i].Before(split) {
			ws.TrainX = append(ws.TrainX, x)
			ws.TrainY = append(ws.TrainY, scaled[i])
			ws.TrainTimes = append(ws.TrainTimes, closeTimes[i])
		} else {
			ws.ValX = append(ws.ValX, x)
			ws.ValY = append(ws.ValY, scaled[i])
			ws.ValTimes = append(ws.ValTimes, closeTimes[i])
		}
	}
	return ws, nil
}

// NextWindow returns the last windowSize values of the raw series, scaled with s.
// It is the input for the forecast one step past the end of the series.
func NextWindow(series []float64, windowSize int, s Scaler) ([]float64, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("window size %d: %w", windowSize, domain.ErrData)
	}
	if len(series) < windowSize {
		return nil, fmt.Errorf("need %d values for the next window, have %d: %w", windowSize, len(series), domain.ErrInsufficientData)
	}
	return Scale(series[len(series)-windowSize:], s)
}
