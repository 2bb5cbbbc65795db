// Package probcut extracts individually numbered exam questions from
// scanned multi-column pages into separate cropped images.
//
// The pipeline detects column layout, runs a fast OCR pass over every
// column concurrently, turns the recognized text into problem-number
// markers, tiles each column into per-problem regions, and validates
// the detected numbers against the expected set. Columns that are
// missing a small number of problems can be escalated to a slower,
// more accurate remote OCR engine before the job settles for partial
// results.
//
// The primary API is a fluent builder:
//
//	reg := ocr.NewRegistry()
//	reg.Register(tesseract.New())
//
//	result, warnings, err := probcut.OpenPDF("exam.pdf").
//	    WithRegistry(reg).
//	    Expected(1, 20).
//	    Extract(ctx)
package probcut

import (
	"strings"

	"github.com/dwkim-dev/probcut/config"
	"github.com/dwkim-dev/probcut/imaging"
	"github.com/dwkim-dev/probcut/ocr"
	"github.com/dwkim-dev/probcut/ocr/mathpix"
	"github.com/dwkim-dev/probcut/ocr/tesseract"
)

// OpenPDF starts a pipeline over a scanned PDF. The file is not read
// until Extract is called.
func OpenPDF(path string) *Extractor {
	return &Extractor{
		pdfPath: path,
		options: defaultOptions(),
	}
}

// FromImages starts a pipeline over already-rasterized page images,
// in page order. Useful when rasterization happens elsewhere, and the
// only way to feed in non-PDF scans.
func FromImages(pages ...*imaging.Page) *Extractor {
	return &Extractor{
		images:  pages,
		options: defaultOptions(),
	}
}

// Warning is a non-fatal issue encountered during extraction. A run
// can complete successfully and still carry warnings: a dropped
// zero-height problem region, an estimated marker position, a remote
// engine that timed out during escalation.
type Warning struct {
	// Stage names the pipeline stage the warning came from.
	Stage string

	// Message is a human-readable description.
	Message string
}

// FormatWarnings renders warnings one per line for logging.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, w := range warnings {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(w.Stage)
		sb.WriteString(": ")
		sb.WriteString(w.Message)
	}
	return sb.String()
}

// DefaultRegistry returns a registry with the engines compiled into
// this build registered. Engines whose backing service is not
// configured register anyway and report themselves unavailable.
func DefaultRegistry(engines ...ocr.Engine) (*ocr.Registry, error) {
	reg := ocr.NewRegistry()
	for _, e := range engines {
		if err := reg.Register(e); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// RegistryFromConfig builds a registry holding the engines this module
// can construct itself, wired from the environment-derived
// configuration: Tesseract for the fast tier and Mathpix, with its
// credentials and poll deadline, for the accurate tier. Engines whose
// backing service is not configured register anyway and report
// themselves unavailable.
func RegistryFromConfig(cfg *config.Config) (*ocr.Registry, error) {
	client := mathpix.NewClient(mathpix.Config{
		AppID:       cfg.MathpixAppID,
		AppKey:      cfg.MathpixAppKey,
		PollTimeout: cfg.PollTimeout,
	})
	return DefaultRegistry(tesseract.New(), mathpix.NewEngine(client))
}
