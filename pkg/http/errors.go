package http

import (
	"errors"
	"fmt"
	"net/http"

	"PriceCast/internal/domain"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// UnprocessableError creates a 422 error.
func UnprocessableError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusUnprocessableEntity)
}

// TooManyRequestsError creates a 429 error.
func TooManyRequestsError(message string) *AppError {
	return NewAppError("ERR_RATE_LIMITED", "", message, http.StatusTooManyRequests)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// FromDomain maps the forecast error taxonomy to an AppError. The failing
// stage, when known, is reported as a param.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var out *AppError
	switch {
	case errors.Is(err, domain.ErrData):
		out = BadRequestError(err.Error())
		out.Code = "ERR_DATA"
	case errors.Is(err, domain.ErrShape):
		out = BadRequestError(err.Error())
		out.Code = "ERR_SHAPE"
	case errors.Is(err, domain.ErrDegenerateScale):
		out = UnprocessableError("ERR_DEGENERATE_SCALE", err.Error())
	case errors.Is(err, domain.ErrInsufficientData):
		out = UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error())
	case errors.Is(err, domain.ErrPersistence):
		out = NotFoundError(err.Error())
		out.Code = "ERR_PERSISTENCE"
	case errors.Is(err, domain.ErrModelState):
		out = UnprocessableError("ERR_MODEL_STATE", err.Error())
	default:
		out = InternalError("Something went wrong")
	}
	out.Err = err
	if stage, ok := domain.StageOf(err); ok {
		out.WithParam("stage", string(stage))
	}
	return out
}
