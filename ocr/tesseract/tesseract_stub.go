//go:build !ocr

// Package tesseract provides the local Tesseract-backed OCR engine.
// It requires the gosseract cgo bindings and a tesseract installation,
// so the real implementation is gated behind the "ocr" build tag; this
// stub ships in the default build and reports itself unavailable.
package tesseract

import (
	"context"
	"fmt"

	"github.com/dwkim-dev/probcut/ocr"
)

// Engine is the stub used when the binary is built without the "ocr"
// tag. It registers cleanly but never executes.
type Engine struct{}

// New returns a stub Tesseract engine.
func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "tesseract" }

// Available always reports false in the stub build.
func (e *Engine) Available() bool { return false }

func (e *Engine) EstimatedCost() float64 { return 0 }

// Execute always fails in the stub build.
func (e *Engine) Execute(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	return nil, &ocr.ExecutionError{
		Engine: e.Name(),
		Err:    fmt.Errorf("built without the ocr tag: %w", ocr.ErrEngineUnavailable),
	}
}
