package mathpix

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/dwkim-dev/probcut/ocr"
)

// perPageCost is the published per-page processing price in USD.
const perPageCost = 0.025

// Engine adapts a Client to the ocr.Engine interface.
type Engine struct {
	client *Client
}

// NewEngine wraps an existing client.
func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

func (e *Engine) Name() string { return "mathpix" }

// Available reports whether credentials are configured. It does not
// probe the network; an unreachable service surfaces as an Execute
// error instead.
func (e *Engine) Available() bool { return e.client.Configured() }

func (e *Engine) EstimatedCost() float64 { return perPageCost }

// Execute uploads the image, waits for remote processing, and converts
// the downloaded lines into spans.
func (e *Engine) Execute(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, in.Image); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}

	docID, err := e.client.Upload(ctx, buf.Bytes())
	if err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}
	if err := e.client.Poll(ctx, docID); err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}
	lines, err := e.client.Download(ctx, docID)
	if err != nil {
		return nil, &ocr.ExecutionError{Engine: e.Name(), Err: err}
	}

	var spans []ocr.Span
	for _, page := range lines.Pages {
		for _, line := range page.Lines {
			if in.MinConfidence > 0 && line.Confidence < in.MinConfidence {
				continue
			}
			spans = append(spans, ocr.Span{
				Text:       line.Text,
				Box:        regionBounds(line.Region),
				Confidence: line.Confidence,
			})
		}
	}
	return &ocr.Result{Spans: spans, Engine: e.Name()}, nil
}

// regionBounds returns the axis-aligned bounds of a contour.
func regionBounds(region [][2]int) image.Rectangle {
	if len(region) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(region[0][0], region[0][1], region[0][0], region[0][1])
	for _, p := range region[1:] {
		if p[0] < r.Min.X {
			r.Min.X = p[0]
		}
		if p[1] < r.Min.Y {
			r.Min.Y = p[1]
		}
		if p[0] > r.Max.X {
			r.Max.X = p[0]
		}
		if p[1] > r.Max.Y {
			r.Max.Y = p[1]
		}
	}
	return r
}
