package probcut

import (
	"context"

	"github.com/dwkim-dev/probcut/config"
	"github.com/dwkim-dev/probcut/imaging"
	"github.com/dwkim-dev/probcut/layout"
	"github.com/dwkim-dev/probcut/ocr"
	"github.com/dwkim-dev/probcut/validate"
)

// Extractor provides a fluent interface for configuring and running an
// extraction. Each configuration method returns a new Extractor, so a
// configured Extractor can be shared and further specialized without
// affecting earlier copies.
type Extractor struct {
	pdfPath string
	images  []*imaging.Page

	registry *ocr.Registry
	options  ExtractOptions

	// warnings accumulated during the run
	warnings []Warning
}

// clone creates a copy with deep-copied options.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		pdfPath:  e.pdfPath,
		images:   e.images,
		registry: e.registry,
		options:  e.options.clone(),
		warnings: append([]Warning(nil), e.warnings...),
	}
}

// WithRegistry sets the engine registry the run will draw engines
// from. A registry is required; there is no ambient default.
func (e *Extractor) WithRegistry(reg *ocr.Registry) *Extractor {
	newE := e.clone()
	newE.registry = reg
	return newE
}

// WithStrategy replaces the two-stage OCR strategy.
func (e *Extractor) WithStrategy(s Strategy) *Extractor {
	newE := e.clone()
	if s.MaxRetries < 1 {
		s.MaxRetries = 1
	}
	newE.options.strategy = s
	return newE
}

// WithLayoutConfig replaces the column-detection tunables.
func (e *Extractor) WithLayoutConfig(cfg layout.Config) *Extractor {
	newE := e.clone()
	newE.options.layoutConfig = cfg
	return newE
}

// WithConfig applies an environment-derived configuration wholesale.
// Individual fluent calls afterwards still override it.
func (e *Extractor) WithConfig(cfg *config.Config) *Extractor {
	newE := e.clone()
	newE.options = optionsFromConfig(cfg)
	return newE
}

// Expected declares the ground-truth problem numbers as a contiguous
// range. Without it, validation assumes 1..max(detected), which cannot
// notice problems missing from the end of the sheet.
func (e *Extractor) Expected(first, last int) *Extractor {
	newE := e.clone()
	newE.options.expected = nil
	for n := first; n <= last; n++ {
		newE.options.expected = append(newE.options.expected, n)
	}
	return newE
}

// ExpectedNumbers declares the ground-truth problem numbers
// explicitly, for sheets with non-contiguous numbering.
func (e *Extractor) ExpectedNumbers(numbers ...int) *Extractor {
	newE := e.clone()
	newE.options.expected = append([]int(nil), numbers...)
	return newE
}

// MaxConcurrency caps how many page or column tasks run at once.
// Values below 1 are treated as 1.
func (e *Extractor) MaxConcurrency(n int) *Extractor {
	newE := e.clone()
	if n < 1 {
		n = 1
	}
	newE.options.maxConcurrency = n
	return newE
}

// Languages sets the OCR recognition languages as BCP 47 tags.
func (e *Extractor) Languages(tags ...string) *Extractor {
	newE := e.clone()
	newE.options.languages = append([]string(nil), tags...)
	return newE
}

// MinConfidence sets the initial OCR confidence floor for stage 1.
// Retries relax it further.
func (e *Extractor) MinConfidence(c float64) *Extractor {
	newE := e.clone()
	newE.options.minConfidence = c
	return newE
}

// DPI declares the resolution page images were (or will be) rendered
// at, used for coordinate mapping between the PDF text layer and
// pixels.
func (e *Extractor) DPI(dpi int) *Extractor {
	newE := e.clone()
	newE.options.dpi = dpi
	return newE
}

// MaxProblemWidth caps the width of cropped problem images; wider
// crops are downscaled preserving aspect ratio. Zero keeps full
// resolution. The cap applies after whitespace trimming and does not
// affect the reported bounding boxes, which stay in page coordinates.
func (e *Extractor) MaxProblemWidth(n int) *Extractor {
	newE := e.clone()
	if n < 0 {
		n = 0
	}
	newE.options.maxProblemWidth = n
	return newE
}

// OutputDir enables file generation: problem PNGs, metadata.json, and
// extracted.zip are written there after a successful run.
func (e *Extractor) OutputDir(dir string) *Extractor {
	newE := e.clone()
	newE.options.outputDir = dir
	return newE
}

// Result is the aggregated outcome of one extraction run.
type Result struct {
	// Problems are the extracted problem images in deterministic
	// (page, column, vertical position) order.
	Problems []ExtractedProblem

	// Feedback is the final validation outcome. It is reported even
	// on partial success so callers can tell complete from
	// best-effort.
	Feedback validate.Feedback

	// Decision records what the decision step chose after stage 1.
	Decision Decision

	// Partial is set when validation did not fully succeed.
	Partial bool

	// State is the terminal pipeline state, StateComplete on any
	// non-error return.
	State State

	// MetadataPath and ArchivePath are set when OutputDir was
	// configured.
	MetadataPath string
	ArchivePath  string
}

// Extract runs the pipeline to completion. It is the terminal
// operation of the fluent chain. Warnings describe non-fatal issues;
// a non-nil error means the job failed outright and the Result is nil.
//
// Cancelling ctx aborts all in-flight page and column tasks.
func (e *Extractor) Extract(ctx context.Context) (*Result, []Warning, error) {
	runner := e.clone()
	result, err := runner.run(ctx)
	if err != nil {
		return nil, runner.warnings, err
	}
	return result, runner.warnings, nil
}
