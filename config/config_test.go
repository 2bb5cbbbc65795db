package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDPI, cfg.DPI)
	assert.Equal(t, "tesseract", cfg.Stage1Engine)
	assert.Equal(t, "mathpix", cfg.Stage2Engine)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultMaxConcurrency, cfg.MaxConcurrency)
	assert.Equal(t, []string{"ko", "en"}, cfg.Languages)
	assert.Equal(t, 60*time.Second, cfg.PollTimeout)
	assert.Empty(t, cfg.MathpixAppID)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PROBCUT_DPI", "300")
	t.Setenv("PROBCUT_STAGE1_ENGINE", "paddleocr")
	t.Setenv("PROBCUT_MATHPIX_APP_ID", "my-app")
	t.Setenv("PROBCUT_MAX_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.DPI)
	assert.Equal(t, "paddleocr", cfg.Stage1Engine)
	assert.Equal(t, "my-app", cfg.MathpixAppID)
	assert.Equal(t, 8, cfg.MaxConcurrency)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PROBCUT_DPI", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero dpi", func(c *Config) { c.DPI = 0 }, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
		{"confidence above one", func(c *Config) { c.MinConfidence = 1.5 }, false},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, false},
		{"missing stage1", func(c *Config) { c.Stage1Engine = "" }, false},
		{"zero retries allowed", func(c *Config) { c.MaxRetries = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
