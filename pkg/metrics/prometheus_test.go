package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordStage("train", 2*time.Second)
	r.RecordError("load")
	r.RecordError("load")
	r.RecordTrainingLoss("BTCUSDT", 0.004)
	r.RecordForecast("BTCUSDT", 42000.5)
	r.RecordRun("BTCUSDT", "ok")

	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("load")); got != 2 {
		t.Fatalf("expected 2 load errors, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastForecast.WithLabelValues("BTCUSDT")); got != 42000.5 {
		t.Fatalf("unexpected forecast gauge %v", got)
	}
	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("BTCUSDT", "ok")); got != 1 {
		t.Fatalf("unexpected runs total %v", got)
	}
	if n := testutil.CollectAndCount(r.stageDuration); n != 1 {
		t.Fatalf("expected one stage series, got %d", n)
	}
}
