package repository

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/cache"
)

const sampleSeries = `[
  {"openTime":"1704067200000","closeTime":"1704070799999","open":"42000.1","high":"42100","low":"41900.5","close":"42050.25","volume":"12.5","average":"42010"},
  {"openTime":"1704070800000","closeTime":"1704074399999","open":"42050.25","high":"42200","low":"42000","close":"42150.75","volume":"8","average":"42100"},
  {"date":"2024-01-01T03:00:00Z","price":"42200.5"}
]`

func TestParseSeries(t *testing.T) {
	s, err := ParseSeries([]byte(sampleSeries), "BTCUSDT", domrepo.TF1h)
	if err != nil {
		t.Fatalf("ParseSeries: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 observations, got %d", s.Len())
	}
	first := s.Observations[0]
	if first.Close != 42050.25 || first.Volume != 12.5 || first.Low != 41900.5 {
		t.Fatalf("unexpected first observation %+v", first)
	}
	if want := time.UnixMilli(1704070799999).UTC(); !first.CloseTime.Equal(want) {
		t.Fatalf("expected close time %v, got %v", want, first.CloseTime)
	}
	last := s.Observations[2]
	if last.Close != 42200.5 || last.Open != 42200.5 || last.Volume != 0 {
		t.Fatalf("short record not expanded: %+v", last)
	}
}

func TestParseSeriesRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"empty", `[]`},
		{"bad number", `[{"closeTime":"2024-01-01T00:00:00Z","close":"abc"}]`},
		{"missing close", `[{"closeTime":"2024-01-01T00:00:00Z","open":"1"}]`},
		{"bad time", `[{"closeTime":"yesterday","close":"1"}]`},
		{"not increasing", `[
			{"closeTime":"2024-01-01T01:00:00Z","close":"1"},
			{"closeTime":"2024-01-01T01:00:00Z","close":"2"}
		]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeries([]byte(tt.body), "X", domrepo.TF1h); !errors.Is(err, domain.ErrData) {
				t.Fatalf("expected ErrData, got %v", err)
			}
		})
	}
}

func TestFileSeriesSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(SeriesPath(dir, "BTCUSDT", domrepo.TF1h), []byte(sampleSeries), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src := NewFileSeriesSource(dir, nil)
	s, err := src.LoadSeries(context.Background(), "BTCUSDT", domrepo.TF1h)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if s.Symbol != "BTCUSDT" || s.Timeframe != "1h" || s.Len() != 3 {
		t.Fatalf("unexpected series %s/%s len %d", s.Symbol, s.Timeframe, s.Len())
	}
	if _, err := src.LoadSeries(context.Background(), "ETHUSDT", domrepo.TF1h); !errors.Is(err, domain.ErrData) {
		t.Fatalf("expected ErrData for missing file, got %v", err)
	}
}

type countingSource struct {
	calls  int
	series models.Series
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) LoadSeries(context.Context, string, domrepo.Timeframe) (models.Series, error) {
	c.calls++
	return c.series, nil
}

func TestCachedSeriesSource(t *testing.T) {
	base := &countingSource{series: models.Series{Symbol: "X", Timeframe: "1h", Observations: []models.Observation{
		{CloseTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 1},
	}}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	src := NewCachedSeriesSource(base, mc, time.Minute, nil)

	for i := 0; i < 3; i++ {
		s, err := src.LoadSeries(context.Background(), "X", domrepo.TF1h)
		if err != nil {
			t.Fatalf("LoadSeries: %v", err)
		}
		if s.Len() != 1 || !s.Observations[0].CloseTime.Equal(base.series.Observations[0].CloseTime) {
			t.Fatalf("unexpected cached series %+v", s)
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected one underlying load, got %d", base.calls)
	}
}

func TestFileModelStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "models", "btc")
	store := NewFileModelStore(nil)
	in := &domrepo.Artifact{Manifest: []byte(`{"format":1}`), Weights: []byte{1, 2, 3, 4, 5, 6, 7, 8}}

	if err := store.Save(ctx, "file://"+dir, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, f := range []string{ManifestFile, WeightsFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("expected %s: %v", f, err)
		}
	}
	out, err := store.Load(ctx, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(out.Manifest, in.Manifest) || !bytes.Equal(out.Weights, in.Weights) {
		t.Fatal("artifact changed on round trip")
	}
	if _, err := store.Load(ctx, filepath.Join(dir, "missing")); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestModelStoreRouter(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	router := NewModelStoreRouter().
		Register("file", NewFileModelStore(nil)).
		Register("redis", NewCacheModelStore(mc, nil))

	in := &domrepo.Artifact{Manifest: []byte(`{}`), Weights: []byte{9, 9}}
	if err := router.Save(ctx, "redis://btc-1h", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := router.Load(ctx, "redis://btc-1h")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(out.Weights, in.Weights) {
		t.Fatal("weights changed through cache store")
	}
	if _, err := router.Load(ctx, "redis://other"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence for missing key, got %v", err)
	}
	if err := router.Save(ctx, "s3://bucket/model", in); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence for unknown scheme, got %v", err)
	}
}

func TestSplitLocation(t *testing.T) {
	tests := []struct{ in, scheme, rest string }{
		{"file://data/models", "file", "data/models"},
		{"REDIS://key", "redis", "key"},
		{"data/models", "file", "data/models"},
	}
	for _, tt := range tests {
		scheme, rest := SplitLocation(tt.in)
		if scheme != tt.scheme || rest != tt.rest {
			t.Fatalf("SplitLocation(%q) = %q, %q", tt.in, scheme, rest)
		}
	}
}

func TestSQLiteRecorder(t *testing.T) {
	ctx := context.Background()
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	defer rec.Close()

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, sym := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT"} {
		rep := &models.ForecastReport{
			RunID:          "run-" + string(rune('a'+i)),
			Symbol:         sym,
			Timeframe:      "1h",
			Model:          "cnn",
			WindowSize:     10,
			Trained:        true,
			FinalLoss:      0.01,
			PredictedAt:    base.Add(time.Duration(i) * time.Hour),
			PredictedValue: 100 + float64(i),
			Actual:         []float64{99, 100},
			Predicted:      []float64{98, 101, 100 + float64(i)},
			FinishedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := rec.RecordForecast(ctx, rep); err != nil {
			t.Fatalf("RecordForecast: %v", err)
		}
	}

	btc, err := rec.Recent(ctx, "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(btc) != 2 || btc[0].RunID != "run-c" || btc[1].RunID != "run-a" {
		t.Fatalf("unexpected btc history %+v", btc)
	}
	if btc[0].PredictedValue != 102 || btc[0].LastActual != 100 || btc[0].ValidationSize != 2 || !btc[0].Trained {
		t.Fatalf("unexpected summary %+v", btc[0])
	}
	if !btc[0].PredictedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected predicted_at %v", btc[0].PredictedAt)
	}

	all, err := rec.Recent(ctx, "", 2)
	if err != nil {
		t.Fatalf("Recent all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(all))
	}
}
