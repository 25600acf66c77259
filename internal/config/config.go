// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation uses struct tags; failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"runtime"

	"github.com/okian/estimatb/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// TbMin, TbMax and TbStep define the default candidate grid in °C.
	TbMin  float64 `koanf:"tb_min"`
	TbMax  float64 `koanf:"tb_max" validate:"gtefield=TbMin"`
	TbStep float64 `koanf:"tb_step" validate:"gt=0"`

	// ScoreMode is the default ranking metric: mse or r2.
	ScoreMode string `koanf:"score_mode" validate:"oneof=mse r2"`

	// SkipRows excludes leading rows from the regression sample by default.
	SkipRows int `koanf:"skip_rows" validate:"gte=0"`

	// Workers sets how many candidates are evaluated concurrently.
	Workers int `koanf:"workers" validate:"gte=1"`

	// MaxCandidates caps the grid size of a single request.
	MaxCandidates int `koanf:"max_candidates" validate:"gte=1"`

	// MaxUploadMB caps the request body of POST /estimate.
	MaxUploadMB int `koanf:"max_upload_mb" validate:"gte=1,lte=1024"`

	// ColumnMode selects the default resolver: strict or fuzzy.
	ColumnMode string `koanf:"column_mode" validate:"oneof=strict fuzzy"`

	// ShutdownTimeoutSec bounds graceful shutdown.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec" validate:"gte=1"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		TbMin:              model.DefaultRange.Min,
		TbMax:              model.DefaultRange.Max,
		TbStep:             model.DefaultRange.Step,
		ScoreMode:          string(model.ScoreMSE),
		SkipRows:           0,
		Workers:            runtime.NumCPU(),
		MaxCandidates:      10_000,
		MaxUploadMB:        16,
		ColumnMode:         "strict",
		ShutdownTimeoutSec: 30,
	}
}

// Range returns the configured candidate grid.
func (c *Config) Range() model.CandidateRange {
	return model.CandidateRange{Min: c.TbMin, Max: c.TbMax, Step: c.TbStep}
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
