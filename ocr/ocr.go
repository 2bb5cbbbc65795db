// Package ocr defines the engine abstraction used for recognizing text
// on page images, together with a write-once registry for engine
// implementations.
//
// Engines come in two tiers. Fast local engines (Tesseract and friends)
// run cheaply on every column and are used for the first recognition
// pass. Accurate remote engines cost money per page and are reserved
// for a second pass over columns the first pass failed to cover. The
// tier of an engine is determined by its name, not by the engine itself,
// so callers can make tier decisions without instantiating anything.
package ocr

import (
	"context"
	"image"
)

// Span is a single recognized piece of text with its position on the
// source image. Coordinates are pixels in the coordinate space of the
// image that was passed to Execute.
type Span struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // 0..1
	Language   string  // BCP 47 tag of the recognition language, if known
}

// Input carries an image and recognition hints to an engine. A zero
// value for any hint means "engine default".
type Input struct {
	// Image is the page or column to recognize. Required.
	Image image.Image

	// Languages lists recognition languages in priority order,
	// as BCP 47 tags ("ko", "en"). Engines that cannot honor a
	// language silently ignore it.
	Languages []string

	// DPI is the resolution the image was rendered at. Engines that
	// need it (Tesseract does) fall back to 300 when zero.
	DPI int

	// MinConfidence drops spans below this confidence before the
	// result is returned. Zero keeps everything.
	MinConfidence float64
}

// Result is the outcome of one engine execution.
type Result struct {
	Spans  []Span
	Engine string
}

// Engine recognizes text on images. Implementations must be safe for
// concurrent use; the pipeline runs several columns at once.
type Engine interface {
	// Name returns the registry name of the engine ("tesseract",
	// "mathpix").
	Name() string

	// Execute recognizes text on the input image. It honors ctx
	// cancellation and returns an *ExecutionError wrapping the
	// engine failure when recognition itself fails.
	Execute(ctx context.Context, in Input) (*Result, error)

	// Available reports whether the engine can run right now:
	// binaries installed, credentials configured.
	Available() bool

	// EstimatedCost returns the approximate cost in USD of one
	// execution. Local engines return 0.
	EstimatedCost() float64
}

// Category is the pricing/accuracy tier of an engine.
type Category int

const (
	// CategoryUnknown is returned for names not in the tier table.
	CategoryUnknown Category = iota

	// CategoryFast engines are local and free; used for the first pass.
	CategoryFast

	// CategoryAccurate engines are remote and paid; used to re-read
	// columns the fast pass missed.
	CategoryAccurate
)

func (c Category) String() string {
	switch c {
	case CategoryFast:
		return "fast"
	case CategoryAccurate:
		return "accurate"
	default:
		return "unknown"
	}
}

// tiers maps engine names to their category. The table is static:
// an engine's tier is a property of the product, not the deployment.
var tiers = map[string]Category{
	"tesseract":     CategoryFast,
	"paddleocr":     CategoryFast,
	"easyocr":       CategoryFast,
	"mathpix":       CategoryAccurate,
	"claude-vision": CategoryAccurate,
	"gpt4-vision":   CategoryAccurate,
}

// CategoryOf returns the tier for a registered engine name.
// Unrecognized names return CategoryUnknown.
func CategoryOf(name string) Category {
	return tiers[name]
}
