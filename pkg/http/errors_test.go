package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("bad row: %w", domain.ErrData), http.StatusBadRequest, "ERR_DATA"},
		{domain.ErrShape, http.StatusBadRequest, "ERR_SHAPE"},
		{domain.WrapStage(domain.StageScale, domain.ErrDegenerateScale), http.StatusUnprocessableEntity, "ERR_DEGENERATE_SCALE"},
		{domain.ErrInsufficientData, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_DATA"},
		{domain.WrapStage(domain.StagePersist, domain.ErrPersistence), http.StatusNotFound, "ERR_PERSISTENCE"},
		{domain.ErrModelState, http.StatusUnprocessableEntity, "ERR_MODEL_STATE"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
		{TooManyRequestsError("slow down"), http.StatusTooManyRequests, "ERR_RATE_LIMITED"},
	}
	for _, tc := range cases {
		got := FromDomain(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%v: got %d %s, want %d %s", tc.err, got.Status, got.Code, tc.status, tc.code)
		}
	}

	staged := FromDomain(domain.WrapStage(domain.StageScale, domain.ErrDegenerateScale))
	if staged.Params["stage"] != "scale" {
		t.Fatalf("expected stage param, got %v", staged.Params)
	}
}

type sampleRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Size   string `json:"size" default:"medium" validate:"oneof=small medium big"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"symbol":"BTCUSDT"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	r := &sampleRequest{}
	if verr := ReadAndValidateRequest(c, r); verr != nil {
		t.Fatalf("unexpected validation error %v", verr)
	}
	if r.Size != "medium" {
		t.Fatalf("default not applied, got %q", r.Size)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"size":"huge"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	verr, ok := ReadAndValidateRequest(c, &sampleRequest{}).([]ValidationError)
	if !ok || len(verr) != 2 {
		t.Fatalf("expected two validation errors, got %#v", verr)
	}
	if verr[0].Field != "symbol" || verr[0].Code != "ERR_REQUIRED" {
		t.Fatalf("unexpected first error %+v", verr[0])
	}
}
