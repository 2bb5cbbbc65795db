package probcut

import (
	"github.com/dwkim-dev/probcut/config"
	"github.com/dwkim-dev/probcut/layout"
)

// Strategy selects the engines and retry budget of the two-stage OCR
// plan.
type Strategy struct {
	// Stage1Engine runs over every column. Must be registered.
	Stage1Engine string

	// Stage2Engine is the accurate tier used for escalation. Empty
	// disables escalation.
	Stage2Engine string

	// FallbackEngine replaces Stage1Engine when it is unavailable.
	FallbackEngine string

	// MaxRetries bounds stage-1 re-runs with relaxed parameters.
	MaxRetries int
}

// ExtractOptions holds configuration for an extraction run.
type ExtractOptions struct {
	layoutConfig layout.Config
	strategy     Strategy

	dpi            int
	maxConcurrency int
	minConfidence  float64
	languages      []string

	// expected problem numbers; nil means derive 1..max(detected)
	expected []int

	// maxProblemWidth caps cropped problem images; 0 keeps full size
	maxProblemWidth int

	// outputDir enables file generation and packaging when non-empty
	outputDir string
}

// defaultOptions returns the default extraction options.
func defaultOptions() ExtractOptions {
	return ExtractOptions{
		layoutConfig: layout.DefaultConfig(),
		strategy: Strategy{
			Stage1Engine: config.DefaultStage1Engine,
			Stage2Engine: config.DefaultStage2Engine,
			MaxRetries:   config.DefaultMaxRetries,
		},
		dpi:            config.DefaultDPI,
		maxConcurrency: config.DefaultMaxConcurrency,
		minConfidence:  config.DefaultMinConfidence,
		languages:      []string{"ko", "en"},
	}
}

// optionsFromConfig maps an environment-derived configuration onto
// extraction options.
func optionsFromConfig(cfg *config.Config) ExtractOptions {
	opts := defaultOptions()
	opts.strategy.Stage1Engine = cfg.Stage1Engine
	opts.strategy.Stage2Engine = cfg.Stage2Engine
	opts.strategy.MaxRetries = cfg.MaxRetries
	opts.dpi = cfg.DPI
	opts.maxConcurrency = cfg.MaxConcurrency
	opts.minConfidence = cfg.MinConfidence
	opts.languages = append([]string(nil), cfg.Languages...)
	opts.outputDir = cfg.OutputDir
	return opts
}

// clone creates a deep copy of ExtractOptions.
func (o ExtractOptions) clone() ExtractOptions {
	newOpts := o
	if o.languages != nil {
		newOpts.languages = make([]string, len(o.languages))
		copy(newOpts.languages, o.languages)
	}
	if o.expected != nil {
		newOpts.expected = make([]int, len(o.expected))
		copy(newOpts.expected, o.expected)
	}
	return newOpts
}
