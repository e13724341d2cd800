package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage of a forecast run. Wrap these with
// fmt.Errorf("...: %w", ErrX) and match with errors.Is.
var (
	// ErrData covers missing or malformed series records and empty series.
	ErrData = errors.New("data error")
	// ErrShape is returned when a feature window does not match the model topology.
	ErrShape = errors.New("shape mismatch")
	// ErrDegenerateScale is returned when the series minimum equals its maximum.
	ErrDegenerateScale = errors.New("degenerate scale: min equals max")
	// ErrPersistence covers unreadable, missing or incompatible model artifacts.
	ErrPersistence = errors.New("persistence error")
	// ErrInsufficientData is returned when the series is too short for the request.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrModelState is returned when an operation is invalid in the model's current state.
	ErrModelState = errors.New("invalid model state")
)

// Stage names a step of the forecast workflow.
type Stage string

const (
	StageLoad    Stage = "load"
	StageScale   Stage = "scale"
	StageTrain   Stage = "train"
	StagePersist Stage = "persist"
	StagePredict Stage = "predict"
	StageRender  Stage = "render"
)

// StageError identifies which stage of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// WrapStage returns nil for a nil error, otherwise a *StageError.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
