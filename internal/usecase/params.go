package usecase

import (
	"fmt"
	"time"

	"PriceCast/internal/domain"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/config"
	"PriceCast/pkg/util"
)

// ParamsFromConfig turns the forecast section of the configuration into run
// parameters.
func ParamsFromConfig(c config.ForecastConfig) (RunParams, error) {
	split, err := ParseSplitTime(c.SplitTime)
	if err != nil {
		return RunParams{}, err
	}
	return RunParams{
		Symbol:          util.NormalizeSymbol(c.Symbol),
		Timeframe:       domrepo.Timeframe(c.Timeframe),
		Model:           c.Model,
		WindowSize:      c.WindowSize,
		Epochs:          c.Epochs,
		Train:           c.ShouldTrain,
		ModelLocation:   c.ModelLocation,
		SplitTime:       split,
		ValidationRatio: c.ValidationRatio,
	}, nil
}

// ParseSplitTime accepts an empty string (ratio split) or any timestamp form
// util.ParseTime understands.
func ParseSplitTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("split time %q: %w", s, domain.ErrData)
	}
	return t, nil
}
