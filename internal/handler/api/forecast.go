package api

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/chart"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// ForecastRunner is the part of usecase.ForecastService the handlers need.
type ForecastRunner interface {
	Run(ctx context.Context, p usecase.RunParams) (*models.ForecastReport, error)
	Latest(symbol string) (*models.ForecastReport, error)
	History(ctx context.Context, symbol string, limit int) ([]models.Summary, error)
}

// ForecastHandler serves forecast runs, results and charts.
type ForecastHandler struct {
	logger   *xlogger.Logger
	svc      ForecastRunner
	defaults config.ForecastConfig
	chartDir string
	limiter  *ratelimit.Limiter
}

func NewForecastHandler(logger *xlogger.Logger, svc ForecastRunner, defaults config.ForecastConfig, chartDir string, limiter *ratelimit.Limiter) *ForecastHandler {
	return &ForecastHandler{logger: logger, svc: svc, defaults: defaults, chartDir: chartDir, limiter: limiter}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast/run", h.Run)
	g.GET("/forecast/latest", h.Latest)
	g.GET("/forecast/history", h.History)
	g.GET("/charts/:symbol/:size", h.Chart)
}

// Run executes a forecast with the request overriding the configured defaults.
func (h *ForecastHandler) Run(c echo.Context) error {
	req := &models.ForecastRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := h.params(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	if h.limiter != nil && !h.limiter.Allow(p.Symbol) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(h.limiter.RetryAfter(p.Symbol).Seconds())+1))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("a forecast for "+p.Symbol+" ran recently"))
	}

	report, err := h.svc.Run(c.Request().Context(), p)
	if err != nil {
		h.logger.Error("forecast run failed", xlogger.String("symbol", p.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, toResponse(report))
}

// Latest returns the newest report, optionally for ?symbol=.
func (h *ForecastHandler) Latest(c echo.Context) error {
	symbol := util.NormalizeSymbol(c.QueryParam("symbol"))
	report, err := h.svc.Latest(symbol)
	if errors.Is(err, usecase.ErrNoForecast) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, toResponse(report))
}

// History lists recorded runs, newest first.
func (h *ForecastHandler) History(c echo.Context) error {
	symbol := util.NormalizeSymbol(c.QueryParam("symbol"))
	limit := util.ParseIntDefault(c.QueryParam("limit"), 20)
	rows, err := h.svc.History(c.Request().Context(), symbol, limit)
	if err != nil {
		h.logger.Error("forecast history failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if rows == nil {
		rows = []models.Summary{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Chart serves a rendered SVG.
func (h *ForecastHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	path := chart.Path(h.chartDir, util.NormalizeSymbol(req.Symbol), req.Size)
	if _, err := os.Stat(path); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no %s chart for %s", req.Size, req.Symbol))
	}
	return c.File(path)
}

func (h *ForecastHandler) params(req *models.ForecastRunRequest) (usecase.RunParams, error) {
	cfg := h.defaults
	if req.Symbol != "" {
		cfg.Symbol = req.Symbol
	}
	if req.Timeframe != "" {
		cfg.Timeframe = req.Timeframe
	}
	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.WindowSize > 0 {
		cfg.WindowSize = req.WindowSize
	}
	if req.Epochs > 0 {
		cfg.Epochs = req.Epochs
	}
	if req.Train != nil {
		cfg.ShouldTrain = *req.Train
	}
	if req.SplitTime != "" {
		cfg.SplitTime = req.SplitTime
	}
	p, err := usecase.ParamsFromConfig(cfg)
	if err != nil {
		return p, err
	}
	p.Timeframe = domrepo.NormalizeTimeframe(string(p.Timeframe))
	return p, nil
}

func toResponse(r *models.ForecastReport) models.ForecastResponse {
	return models.ForecastResponse{
		Summary:   r.Summarize(),
		ScaleMin:  r.ScaleMin,
		ScaleMax:  r.ScaleMax,
		Labels:    r.Labels,
		Actual:    r.Actual,
		Predicted: r.Predicted,
		Charts:    r.Charts,
		Headline:  usecase.Headline(r),
	}
}
