//go:build ocr

// Package tesseract provides the local Tesseract-backed OCR engine.
// It requires the gosseract cgo bindings and a tesseract installation,
// so the real implementation is gated behind the "ocr" build tag; the
// default build ships a stub whose Available reports false.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/dwkim-dev/probcut/ocr"
)

const defaultDPI = 300

// Engine runs Tesseract over page images. A fresh gosseract client is
// created per Execute call; the client is not safe for concurrent use
// but the Engine is.
type Engine struct{}

// New returns a Tesseract engine.
func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "tesseract" }

// Available reports whether the tesseract library can be initialized.
func (e *Engine) Available() bool {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version() != ""
}

// EstimatedCost is zero: tesseract runs locally.
func (e *Engine) EstimatedCost() float64 { return 0 }

// Execute recognizes text on the input image and returns word-level
// spans with bounding boxes.
func (e *Engine) Execute(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, in.Image); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}
	if langs := TessLanguages(in.Languages); len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
		}
	}
	dpi := in.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	if err := client.SetVariable("user_defined_dpi", strconv.Itoa(dpi)); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}

	spans := make([]ocr.Span, 0, len(boxes))
	for _, b := range boxes {
		conf := b.Confidence / 100
		if in.MinConfidence > 0 && conf < in.MinConfidence {
			continue
		}
		spans = append(spans, ocr.Span{
			Text:       b.Word,
			Box:        image.Rect(b.Box.Min.X, b.Box.Min.Y, b.Box.Max.X, b.Box.Max.Y),
			Confidence: conf,
		})
	}
	return &ocr.Result{Spans: spans, Engine: e.Name()}, nil
}
