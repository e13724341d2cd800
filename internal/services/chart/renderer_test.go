package chart

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"PriceCast/internal/domain"
)

func sampleInput() Input {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	in := Input{Symbol: "BTCUSDT"}
	for i := 0; i < 12; i++ {
		in.Labels = append(in.Labels, start.Add(time.Duration(i)*time.Hour))
		in.Actual = append(in.Actual, 100+float64(i))
		in.Predicted = append(in.Predicted, 100.5+float64(i))
	}
	in.PredictedAt = start.Add(12 * time.Hour)
	in.Predicted = append(in.Predicted, 112.4)
	return in
}

func TestRenderWritesEverySize(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(dir, []string{"small", "medium", "big"}, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	paths, err := r.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 charts, got %v", paths)
	}
	for i, name := range []string{"small", "medium", "big"} {
		if paths[i] != Path(dir, "BTCUSDT", name) {
			t.Fatalf("unexpected path %s", paths[i])
		}
		b, err := os.ReadFile(paths[i])
		if err != nil {
			t.Fatalf("read %s: %v", paths[i], err)
		}
		if !bytes.Contains(b, []byte("<svg")) {
			t.Fatalf("%s is not an svg document", paths[i])
		}
	}
}

func TestRenderRejectsMismatchedSeries(t *testing.T) {
	dir := t.TempDir()
	r, _ := NewRenderer(dir, []string{"small"}, nil)
	in := sampleInput()
	in.Predicted = in.Predicted[:len(in.Predicted)-1]
	if _, err := r.Render(context.Background(), in); !errors.Is(err, domain.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files after failed render, got %d", len(entries))
	}
}

func TestRenderRemovesChartsWhenAWriteFails(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(dir, []string{"small", "medium"}, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	// a directory in place of the medium chart makes its rename fail
	if err := os.Mkdir(Path(dir, "BTCUSDT", "medium"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := r.Render(context.Background(), sampleInput()); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(Path(dir, "BTCUSDT", "small")); !os.IsNotExist(err) {
		t.Fatalf("small chart should have been removed, stat err %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the blocking directory, got %d entries", len(entries))
	}
}

func TestNewRendererRejectsUnknownSize(t *testing.T) {
	if _, err := NewRenderer(t.TempDir(), []string{"huge"}, nil); err == nil {
		t.Fatal("expected unknown size error")
	}
}
