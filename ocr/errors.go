package ocr

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is returned when a requested engine is not
// registered or reports itself unusable.
var ErrEngineUnavailable = errors.New("engine unavailable")

// ExecutionError wraps a failure inside an engine run, preserving which
// engine failed. Engines return it from Execute so the pipeline can
// decide whether to retry with relaxed parameters or escalate.
type ExecutionError struct {
	Engine string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("ocr: engine %s: %v", e.Engine, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
