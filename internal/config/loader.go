package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/estimatb/internal/domain/model"
)

// Environment contract.
const (
	EnvPrefix = "ESTIMATB_"
	EnvFile   = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ESTIMATB_CONFIG is set
//  3. env (prefix ESTIMATB_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ESTIMATB_TB_MIN -> tb_min. Keys are flat, so underscores are kept.
	prefix := strings.ToLower(EnvPrefix)
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		if s == strings.ToLower(EnvFile) {
			return ""
		}
		return strings.TrimPrefix(s, prefix)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and the candidate grid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if n := c.Range().Count(); n <= 0 || n > model.MaxCount || n > c.MaxCandidates {
		return fmt.Errorf("%w: grid %g..%g step %g yields %d candidates (max %d)",
			ErrInvalidConfig, c.TbMin, c.TbMax, c.TbStep, n, c.MaxCandidates)
	}
	return nil
}
