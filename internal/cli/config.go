package cli

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/prepare"
)

// Config holds the options of one estimate run.
type Config struct {
	Input string `validate:"required"` // CSV or XLSX file
	Sheet string // Worksheet, first one when empty

	TbMin    float64
	TbMax    float64 `validate:"gtefield=TbMin"`
	TbStep   float64 `validate:"gt=0"`
	Mode     string  `validate:"oneof=mse qme r2"`
	SkipRows int     `validate:"gte=0"`
	Workers  int     `validate:"gte=1"`

	Strict  bool // Exact canonical headers only
	ColDate string
	ColTMin string
	ColTMax string
	ColNF   string

	Output    string // Results CSV path
	Detail    string // Detail CSV path
	BOM       bool   // Prefix CSV output with a UTF-8 BOM
	Delimiter string `validate:"omitempty,len=1"`

	URL     string        `validate:"omitempty,url"` // Remote service, local run when empty
	Timeout time.Duration
	Verbose bool
}

// Validate checks the option values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// Range returns the candidate grid.
func (c *Config) Range() model.CandidateRange {
	return model.CandidateRange{Min: c.TbMin, Max: c.TbMax, Step: c.TbStep}
}

// Resolver returns fuzzy header matching, or strict matching with -strict,
// preceded by any explicitly named columns.
func (c *Config) Resolver() prepare.Resolver {
	var base prepare.Resolver = prepare.NewFuzzyResolver()
	if c.Strict {
		base = prepare.NewStrictResolver()
	}
	m := c.mapping()
	if len(m) == 0 {
		return base
	}
	return prepare.ChainResolver{m, base}
}

func (c *Config) mapping() prepare.ExplicitMapping {
	m := prepare.ExplicitMapping{}
	for role, name := range map[prepare.Role]string{
		prepare.RoleDate:      c.ColDate,
		prepare.RoleTMin:      c.ColTMin,
		prepare.RoleTMax:      c.ColTMax,
		prepare.RoleLeafCount: c.ColNF,
	} {
		if name != "" {
			m[role] = name
		}
	}
	return m
}

func (c *Config) delimiter() rune {
	if c.Delimiter == "" {
		return 0
	}
	return []rune(c.Delimiter)[0]
}
