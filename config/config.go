// Package config loads pipeline configuration from the environment
// using the PROBCUT_ prefix. Everything has a working default; only
// the accurate-tier credentials genuinely need to be supplied.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultDPI            = 200
	DefaultLogLevel       = "info"
	DefaultMaxConcurrency = 4
	DefaultMaxRetries     = 3
	DefaultMinConfidence  = 0.6
	DefaultPollTimeout    = 60 * time.Second
	DefaultStage1Engine   = "tesseract"
	DefaultStage2Engine   = "mathpix"
)

// Config holds all pipeline configuration.
type Config struct {
	// Rasterization
	DPI int

	// OCR strategy
	Stage1Engine  string
	Stage2Engine  string
	MaxRetries    int
	MinConfidence float64
	Languages     []string

	// Concurrency
	MaxConcurrency int

	// Accurate-tier credentials
	MathpixAppID  string
	MathpixAppKey string
	PollTimeout   time.Duration

	// Application
	LogLevel  string
	OutputDir string
}

// DefaultConfig returns a configuration with working defaults.
func DefaultConfig() *Config {
	return &Config{
		DPI:            DefaultDPI,
		Stage1Engine:   DefaultStage1Engine,
		Stage2Engine:   DefaultStage2Engine,
		MaxRetries:     DefaultMaxRetries,
		MinConfidence:  DefaultMinConfidence,
		Languages:      []string{"ko", "en"},
		MaxConcurrency: DefaultMaxConcurrency,
		PollTimeout:    DefaultPollTimeout,
		LogLevel:       DefaultLogLevel,
		OutputDir:      "output",
	}
}

// Load reads configuration from PROBCUT_-prefixed environment
// variables, falling back to defaults for anything unset.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("PROBCUT")
	v.AutomaticEnv()

	v.SetDefault("dpi", cfg.DPI)
	v.SetDefault("stage1_engine", cfg.Stage1Engine)
	v.SetDefault("stage2_engine", cfg.Stage2Engine)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("min_confidence", cfg.MinConfidence)
	v.SetDefault("languages", cfg.Languages)
	v.SetDefault("max_concurrency", cfg.MaxConcurrency)
	v.SetDefault("mathpix_app_id", "")
	v.SetDefault("mathpix_app_key", "")
	v.SetDefault("poll_timeout", cfg.PollTimeout)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("output_dir", cfg.OutputDir)

	cfg.DPI = v.GetInt("dpi")
	cfg.Stage1Engine = v.GetString("stage1_engine")
	cfg.Stage2Engine = v.GetString("stage2_engine")
	cfg.MaxRetries = v.GetInt("max_retries")
	cfg.MinConfidence = v.GetFloat64("min_confidence")
	cfg.Languages = v.GetStringSlice("languages")
	cfg.MaxConcurrency = v.GetInt("max_concurrency")
	cfg.MathpixAppID = v.GetString("mathpix_app_id")
	cfg.MathpixAppKey = v.GetString("mathpix_app_key")
	cfg.PollTimeout = v.GetDuration("poll_timeout")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.OutputDir = v.GetString("output_dir")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot
// work with.
func (c *Config) Validate() error {
	if c.DPI <= 0 {
		return fmt.Errorf("config: dpi must be positive, got %d", c.DPI)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("config: min_confidence must be in [0,1], got %g", c.MinConfidence)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.Stage1Engine == "" {
		return fmt.Errorf("config: stage1_engine must be set")
	}
	return nil
}
