package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain"
	"PriceCast/internal/domain/models"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

type fakeRunner struct {
	got    []usecase.RunParams
	err    error
	latest *models.ForecastReport
}

func (f *fakeRunner) Run(_ context.Context, p usecase.RunParams) (*models.ForecastReport, error) {
	f.got = append(f.got, p)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ForecastReport{
		RunID:          "run-1",
		Symbol:         p.Symbol,
		Timeframe:      string(p.Timeframe),
		Model:          p.Model,
		WindowSize:     p.WindowSize,
		PredictedAt:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		PredictedValue: 123.5,
		Actual:         []float64{120, 121},
		Predicted:      []float64{119, 122, 123.5},
	}, nil
}

func (f *fakeRunner) Latest(symbol string) (*models.ForecastReport, error) {
	if f.latest == nil || (symbol != "" && symbol != f.latest.Symbol) {
		return nil, usecase.ErrNoForecast
	}
	return f.latest, nil
}

func (f *fakeRunner) History(context.Context, string, int) ([]models.Summary, error) {
	return nil, nil
}

func newTestServer(t *testing.T, runner ForecastRunner, chartDir string, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	h := NewForecastHandler(xlogger.Nop(), runner, cfg.Forecast, chartDir, limiter)
	return xhttp.NewServer(h, xlogger.Nop()).Echo()
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRunUsesConfigDefaults(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestServer(t, runner, t.TempDir(), nil)

	rec := do(e, http.MethodPost, "/api/forecast/run", `{"symbol":"ethusdt","epochs":5,"train":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(runner.got) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.got))
	}
	p := runner.got[0]
	if p.Symbol != "ETHUSDT" || p.Epochs != 5 || p.Train || p.WindowSize != 10 || p.Model != "cnn" || p.Timeframe != "1h" {
		t.Fatalf("unexpected params %+v", p)
	}

	var resp struct {
		Data models.ForecastResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.RunID != "run-1" || resp.Data.PredictedValue != 123.5 || resp.Data.LastActual != 121 {
		t.Fatalf("unexpected response %+v", resp.Data)
	}
	if !strings.HasPrefix(resp.Data.Headline, "Predicted price of ETHUSDT for 2024-01-02 00:00 is: 123.5") {
		t.Fatalf("unexpected headline %q", resp.Data.Headline)
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestServer(t, runner, t.TempDir(), nil)

	rec := do(e, http.MethodPost, "/api/forecast/run", `{"timeframe":"7m"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = do(e, http.MethodPost, "/api/forecast/run", `{"symbol":"../X"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ERR_SYMBOL") {
		t.Fatalf("expected 400 for path-like symbol, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPost, "/api/forecast/run", `{"split_time":"yesterday"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad split time, got %d", rec.Code)
	}
	if len(runner.got) != 0 {
		t.Fatalf("invalid requests must not run")
	}
}

func TestRunMapsStageErrors(t *testing.T) {
	runner := &fakeRunner{err: domain.WrapStage(domain.StageScale, domain.ErrDegenerateScale)}
	e := newTestServer(t, runner, t.TempDir(), nil)

	rec := do(e, http.MethodPost, "/api/forecast/run", `{}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ERR_DEGENERATE_SCALE") || !strings.Contains(rec.Body.String(), `"stage":"scale"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRunRateLimitedPerSymbol(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestServer(t, runner, t.TempDir(), ratelimit.New(0.001, 1))

	if rec := do(e, http.MethodPost, "/api/forecast/run", `{"symbol":"BTCUSDT"}`); rec.Code != http.StatusOK {
		t.Fatalf("first run: %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/api/forecast/run", `{"symbol":"BTCUSDT"}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/forecast/run", `{"symbol":"ETHUSDT"}`); rec.Code != http.StatusOK {
		t.Fatalf("other symbol should not be limited: %d", rec.Code)
	}
}

func TestLatest(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestServer(t, runner, t.TempDir(), nil)

	if rec := do(e, http.MethodGet, "/api/forecast/latest", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", rec.Code)
	}
	runner.latest = &models.ForecastReport{RunID: "r9", Symbol: "BTCUSDT"}
	rec := do(e, http.MethodGet, "/api/forecast/latest?symbol=btcusdt", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"run_id":"r9"`) {
		t.Fatalf("unexpected latest response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHistoryEmpty(t *testing.T) {
	e := newTestServer(t, &fakeRunner{}, t.TempDir(), nil)
	rec := do(e, http.MethodGet, "/api/forecast/history?limit=abc", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"rows":[]`) {
		t.Fatalf("unexpected history response %d %s", rec.Code, rec.Body.String())
	}
}

func TestChart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "BTCUSDT-small.svg"), []byte("<svg></svg>"), 0o644); err != nil {
		t.Fatalf("write chart: %v", err)
	}
	e := newTestServer(t, &fakeRunner{}, dir, nil)

	rec := do(e, http.MethodGet, "/api/charts/BTCUSDT/small", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "<svg></svg>" {
		t.Fatalf("unexpected chart response %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/api/charts/BTCUSDT/big", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing chart, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/charts/BTCUSDT/huge", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown size, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/charts/..BTCUSDT/small", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsafe symbol, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &fakeRunner{}, t.TempDir(), nil)
	if rec := do(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
