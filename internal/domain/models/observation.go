package models

import (
	"fmt"
	"math"
	"time"
)

// Observation is one OHLC record of a series.
type Observation struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Average   float64
}

// Finite reports whether every numeric field is a finite number.
func (o Observation) Finite() bool {
	for _, v := range [...]float64{o.Open, o.High, o.Low, o.Close, o.Volume, o.Average} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Series is the ordered sequence of observations for one (symbol, timeframe) pair.
// It is treated as immutable once loaded for a run.
type Series struct {
	Symbol       string
	Timeframe    string
	Observations []Observation
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// Closes extracts the closing prices in series order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Close
	}
	return out
}

// CloseTimes extracts the close timestamps in series order.
func (s Series) CloseTimes() []time.Time {
	out := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.CloseTime
	}
	return out
}

// Last returns the final observation. The series must not be empty.
func (s Series) Last() Observation { return s.Observations[len(s.Observations)-1] }

// Validate checks the series invariants: non-empty, finite values and strictly
// increasing close times.
func (s Series) Validate() error {
	if len(s.Observations) == 0 {
		return fmt.Errorf("series %s/%s is empty", s.Symbol, s.Timeframe)
	}
	for i, o := range s.Observations {
		if !o.Finite() {
			return fmt.Errorf("observation %d has non-finite values", i)
		}
		if i > 0 && !o.CloseTime.After(s.Observations[i-1].CloseTime) {
			return fmt.Errorf("observation %d close time %s is not after %s",
				i, o.CloseTime.Format(time.RFC3339), s.Observations[i-1].CloseTime.Format(time.RFC3339))
		}
	}
	return nil
}
