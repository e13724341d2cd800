package usecase

import (
	"context"
	"errors"
	"testing"

	"PriceCast/internal/domain/models"
)

type failingRecorder struct {
	records int
}

func (r *failingRecorder) RecordForecast(context.Context, *models.ForecastReport) error {
	r.records++
	return errors.New("disk full")
}

func (r *failingRecorder) Recent(context.Context, string, int) ([]models.Summary, error) {
	return []models.Summary{{RunID: "r1"}}, nil
}

func (r *failingRecorder) Close() error { return nil }

type capturePublisher struct {
	got []models.Summary
}

func (p *capturePublisher) PublishForecast(_ context.Context, s models.Summary) error {
	p.got = append(p.got, s)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestForecastServiceRun(t *testing.T) {
	uc, _ := newUseCase(t, &staticSource{series: makeSeries(linearCloses(80))}, newMemStore(), nil)
	rec := &failingRecorder{}
	pub := &capturePublisher{}
	svc := NewForecastService(uc, rec, pub, nil, nil)

	if _, err := svc.Latest(""); !errors.Is(err, ErrNoForecast) {
		t.Fatalf("expected ErrNoForecast before first run, got %v", err)
	}

	p := runParams()
	p.Epochs = 2
	report, err := svc.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("recorder failure must not fail the run: %v", err)
	}
	if rec.records != 1 {
		t.Fatalf("expected one record attempt, got %d", rec.records)
	}
	if len(pub.got) != 1 || pub.got[0].RunID != report.RunID || pub.got[0].Symbol != "LIN" {
		t.Fatalf("unexpected published summaries %+v", pub.got)
	}

	latest, err := svc.Latest("LIN")
	if err != nil || latest != report {
		t.Fatalf("latest for symbol: %v %v", latest, err)
	}
	if _, err := svc.Latest("ETHUSDT"); !errors.Is(err, ErrNoForecast) {
		t.Fatalf("expected ErrNoForecast for unknown symbol, got %v", err)
	}

	hist, err := svc.History(context.Background(), "LIN", 0)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history: %v %v", hist, err)
	}
}

func TestForecastServiceFailedRunKeepsLatest(t *testing.T) {
	src := &staticSource{series: makeSeries(linearCloses(80))}
	uc, _ := newUseCase(t, src, newMemStore(), nil)
	pub := &capturePublisher{}
	svc := NewForecastService(uc, nil, pub, nil, nil)

	p := runParams()
	p.Epochs = 2
	first, err := svc.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	p.Train = false
	p.ModelLocation = "mem://missing"
	if _, err := svc.Run(context.Background(), p); err == nil {
		t.Fatalf("expected load failure")
	}
	if latest, _ := svc.Latest(""); latest != first {
		t.Fatalf("failed run replaced latest report")
	}
	if len(pub.got) != 1 {
		t.Fatalf("failed run must not publish, got %d", len(pub.got))
	}
	if hist, err := svc.History(context.Background(), "", 10); err != nil || hist != nil {
		t.Fatalf("history without recorder should be empty: %v %v", hist, err)
	}
}
