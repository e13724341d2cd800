package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/services/chart"
	"PriceCast/internal/services/forecaster"
)

type staticSource struct {
	series models.Series
	err    error
	calls  int
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) LoadSeries(_ context.Context, symbol string, tf domrepo.Timeframe) (models.Series, error) {
	s.calls++
	if s.err != nil {
		return models.Series{}, s.err
	}
	out := s.series
	out.Symbol, out.Timeframe = symbol, string(tf)
	return out, nil
}

type memStore struct {
	mu        sync.Mutex
	artifacts map[string]*domrepo.Artifact
}

func newMemStore() *memStore { return &memStore{artifacts: map[string]*domrepo.Artifact{}} }

func (m *memStore) Save(_ context.Context, loc string, a *domrepo.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[loc] = a
	return nil
}

func (m *memStore) Load(_ context.Context, loc string) (*domrepo.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[loc]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(closes []float64) models.Series {
	obs := make([]models.Observation, len(closes))
	for i, c := range closes {
		open := seriesStart.Add(time.Duration(i) * time.Hour)
		obs[i] = models.Observation{
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Average:   c,
		}
	}
	return models.Series{Observations: obs}
}

func linearCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.5*float64(i)
	}
	return out
}

func runParams() RunParams {
	return RunParams{
		Symbol:        "LIN",
		Timeframe:     domrepo.TF1h,
		Model:         "cnn",
		WindowSize:    10,
		Epochs:        60,
		Train:         true,
		ModelLocation: "mem://lin",
	}
}

func newUseCase(t *testing.T, src domrepo.SeriesSource, store domrepo.ModelStore, report io.Writer) (*ForecastUseCase, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := chart.NewRenderer(dir, []string{"small"}, nil)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	uc := NewForecastUseCase(src, store, r, report, nil, nil,
		forecaster.WithSeed(42), forecaster.WithLearningRate(0.005))
	return uc, dir
}

func TestExecuteLinearSeries(t *testing.T) {
	var out bytes.Buffer
	src := &staticSource{series: makeSeries(linearCloses(200))}
	uc, dir := newUseCase(t, src, newMemStore(), &out)

	r, err := uc.Execute(context.Background(), runParams())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// ceil(190 * 0.2) labels go to validation
	if len(r.Actual) != 38 || len(r.Labels) != 38 {
		t.Fatalf("expected 38 validation points, got %d actual %d labels", len(r.Actual), len(r.Labels))
	}
	if len(r.Predicted) != len(r.Actual)+1 {
		t.Fatalf("predicted should carry the headline, got %d vs %d", len(r.Predicted), len(r.Actual))
	}
	if r.Predicted[len(r.Predicted)-1] != r.PredictedValue {
		t.Fatalf("headline not appended")
	}
	if math.Abs(r.Actual[0]-181) > 1e-9 || math.Abs(r.Actual[len(r.Actual)-1]-199.5) > 1e-9 {
		t.Fatalf("actual values not inverse scaled: %v .. %v", r.Actual[0], r.Actual[len(r.Actual)-1])
	}
	if r.Predicted[len(r.Predicted)-2] <= r.Predicted[0] {
		t.Fatalf("predictions should follow the upward trend: first %v last %v", r.Predicted[0], r.Predicted[len(r.Predicted)-2])
	}
	// the next step continues the ramp past the last close of 199.5
	if last := r.Actual[len(r.Actual)-1]; r.PredictedValue < last-1 {
		t.Fatalf("headline %v does not continue the trend past %v", r.PredictedValue, last)
	}

	// last close time plus one hourly step
	wantAt := seriesStart.Add(201*time.Hour - time.Millisecond)
	if !r.PredictedAt.Equal(wantAt) {
		t.Fatalf("predicted at %v, want %v", r.PredictedAt, wantAt)
	}
	if r.ScaleMin != 100 || r.ScaleMax != 199.5 || r.Model != "cnn" || !r.Trained {
		t.Fatalf("unexpected report metadata %+v", r)
	}
	if !strings.HasPrefix(out.String(), "Predicted price of LIN for ") {
		t.Fatalf("unexpected report line %q", out.String())
	}
	if len(r.Charts) != 1 || r.Charts[0] != chart.Path(dir, "LIN", "small") {
		t.Fatalf("unexpected charts %v", r.Charts)
	}
	if _, err := os.Stat(r.Charts[0]); err != nil {
		t.Fatalf("chart missing: %v", err)
	}
}

func TestExecuteConstantSeriesFailsAtScale(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50
	}
	var out bytes.Buffer
	uc, dir := newUseCase(t, &staticSource{series: makeSeries(closes)}, newMemStore(), &out)

	_, err := uc.Execute(context.Background(), runParams())
	if !errors.Is(err, domain.ErrDegenerateScale) {
		t.Fatalf("expected degenerate scale error, got %v", err)
	}
	if stage, ok := domain.StageOf(err); !ok || stage != domain.StageScale {
		t.Fatalf("expected scale stage, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 || out.Len() != 0 {
		t.Fatalf("failed run must not chart or report")
	}
}

func TestExecuteLoadWithoutModel(t *testing.T) {
	uc, _ := newUseCase(t, &staticSource{series: makeSeries(linearCloses(80))}, newMemStore(), nil)
	p := runParams()
	p.Train = false

	_, err := uc.Execute(context.Background(), p)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if stage, _ := domain.StageOf(err); stage != domain.StagePersist {
		t.Fatalf("expected persist stage, got %s", stage)
	}
}

func TestExecuteTrainThenLoad(t *testing.T) {
	src := &staticSource{series: makeSeries(linearCloses(80))}
	store := newMemStore()
	uc, _ := newUseCase(t, src, store, nil)

	p := runParams()
	p.Epochs = 3
	trained, err := uc.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("train run: %v", err)
	}

	p.Train = false
	loaded, err := uc.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	if loaded.PredictedValue != trained.PredictedValue {
		t.Fatalf("loaded model predicts %v, trained %v", loaded.PredictedValue, trained.PredictedValue)
	}
	if loaded.Trained || loaded.FinalLoss != 0 {
		t.Fatalf("load run should not report training")
	}
}

func TestExecuteErrorsCarryStage(t *testing.T) {
	cases := []struct {
		name   string
		src    *staticSource
		mutate func(*RunParams)
		stage  domain.Stage
		target error
	}{
		{
			name:   "source failure",
			src:    &staticSource{err: domain.ErrData},
			stage:  domain.StageLoad,
			target: domain.ErrData,
		},
		{
			name:   "split after last label",
			src:    &staticSource{series: makeSeries(linearCloses(40))},
			mutate: func(p *RunParams) { p.SplitTime = seriesStart.Add(1000 * time.Hour) },
			stage:  domain.StageScale,
			target: domain.ErrInsufficientData,
		},
		{
			name:   "series shorter than window",
			src:    &staticSource{series: makeSeries(linearCloses(8))},
			stage:  domain.StageScale,
			target: domain.ErrInsufficientData,
		},
		{
			name:   "cnn window too small",
			src:    &staticSource{series: makeSeries(linearCloses(40))},
			mutate: func(p *RunParams) { p.WindowSize = 3 },
			stage:  domain.StageTrain,
			target: domain.ErrShape,
		},
		{
			name:   "bad timeframe",
			src:    &staticSource{series: makeSeries(linearCloses(40))},
			mutate: func(p *RunParams) { p.Timeframe = "7m" },
			stage:  domain.StageLoad,
			target: domain.ErrData,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, _ := newUseCase(t, tc.src, newMemStore(), nil)
			p := runParams()
			p.Epochs = 1
			if tc.mutate != nil {
				tc.mutate(&p)
			}
			_, err := uc.Execute(context.Background(), p)
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
			if stage, _ := domain.StageOf(err); stage != tc.stage {
				t.Fatalf("expected stage %s, got %s (%v)", tc.stage, stage, err)
			}
		})
	}
}

func TestExecuteRejectsUnsafeSymbol(t *testing.T) {
	for _, symbol := range []string{"../ESCAPED", "A/B", `A\B`, "X..Y", ".HIDDEN"} {
		t.Run(symbol, func(t *testing.T) {
			src := &staticSource{series: makeSeries(linearCloses(40))}
			uc, dir := newUseCase(t, src, newMemStore(), nil)
			p := runParams()
			p.Symbol = symbol
			p.Epochs = 1

			_, err := uc.Execute(context.Background(), p)
			if !errors.Is(err, domain.ErrData) {
				t.Fatalf("expected ErrData, got %v", err)
			}
			if stage, _ := domain.StageOf(err); stage != domain.StageLoad {
				t.Fatalf("expected load stage, got %s", stage)
			}
			if src.calls != 0 {
				t.Fatalf("source must not be read for a rejected symbol")
			}
			if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "ESCAPED-small.svg")); err == nil {
				t.Fatalf("chart written outside the output dir")
			}
		})
	}
}

func TestHeadline(t *testing.T) {
	r := &models.ForecastReport{
		Symbol:         "BTCUSDT",
		PredictedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		PredictedValue: 61234.5,
	}
	want := "Predicted price of BTCUSDT for 2024-03-01 12:00 is: 61234.5"
	if got := Headline(r); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
