package features

import (
	"fmt"
	"math"

	"PriceCast/internal/domain"
)

// Scaler is a min-max normalisation fitted once over a whole series.
// It is a value type; pass it explicitly to every stage that scales or unscales.
type Scaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EmptyScaler is what FitScale returns for an empty series.
var EmptyScaler = Scaler{Min: math.Inf(1), Max: math.Inf(-1)}

// FitScale returns the global minimum and maximum of series in one pass.
func FitScale(series []float64) (Scaler, error) {
	s := EmptyScaler
	if len(series) == 0 {
		return s, fmt.Errorf("fit scale on empty series: %w", domain.ErrData)
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return EmptyScaler, fmt.Errorf("fit scale: non-finite value at %d: %w", i, domain.ErrData)
		}
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s, nil
}

// Degenerate reports whether the scaler cannot map values into [0,1].
func (s Scaler) Degenerate() bool {
	return !(s.Max > s.Min)
}

// Span is max minus min.
func (s Scaler) Span() float64 { return s.Max - s.Min }

// Apply scales one value. Callers must check Degenerate first.
func (s Scaler) Apply(x float64) float64 { return (x - s.Min) / (s.Max - s.Min) }

// Inverse maps a scaled value back to real units.
func (s Scaler) Inverse(x float64) float64 { return x*(s.Max-s.Min) + s.Min }

// Scale applies (x-min)/(max-min) to every element and returns a new slice.
func Scale(series []float64, s Scaler) ([]float64, error) {
	if s.Degenerate() {
		return nil, fmt.Errorf("scale with min=%v max=%v: %w", s.Min, s.Max, domain.ErrDegenerateScale)
	}
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = s.Apply(v)
	}
	return out, nil
}

// InverseScale applies x*(max-min)+min to every element and returns a new slice.
func InverseScale(series []float64, s Scaler) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = s.Inverse(v)
	}
	return out
}
