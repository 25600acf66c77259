package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/estimatb/internal/adapters/table"
	service "github.com/okian/estimatb/internal/app"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/pkg/logger"
)

const outputFilePermission = 0o644

// Run executes one estimation and writes the summary to stdout. The
// summary is printed for rejected tables too, so the messages explaining
// the rejection reach the user.
func Run(ctx context.Context, cfg *Config, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Named("cli")
	log.Debug(ctx, "starting estimation",
		logger.String("input", cfg.Input),
		logger.String("url", cfg.URL),
		logger.Float64("tb_min", cfg.TbMin),
		logger.Float64("tb_max", cfg.TbMax),
		logger.Float64("tb_step", cfg.TbStep),
		logger.String("mode", cfg.Mode),
	)

	var (
		a   *service.Analysis
		err error
	)
	if cfg.URL != "" {
		a, err = NewClient(cfg.URL, cfg.Timeout).Analyze(ctx, cfg)
	} else {
		a, err = analyzeLocal(ctx, cfg, log)
	}
	if a != nil {
		if werr := WriteSummary(stdout, a); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	opts := table.WriteOptions{BOMPrefix: cfg.BOM, Delimiter: cfg.delimiter()}
	if cfg.Output != "" {
		if err := writeFile(cfg.Output, func(w io.Writer) error {
			return table.WriteResults(w, a.Results, opts)
		}); err != nil {
			return err
		}
		log.Info(ctx, "results written", logger.String("path", cfg.Output))
	}
	if cfg.Detail != "" {
		write := func(w io.Writer) error { return table.WriteDetail(w, a.Detail, opts) }
		if cfg.URL != "" {
			write = func(w io.Writer) error {
				return NewClient(cfg.URL, cfg.Timeout).Download(ctx, cfg, "detail", w)
			}
		}
		if err := writeFile(cfg.Detail, write); err != nil {
			return err
		}
		log.Info(ctx, "detail written", logger.String("path", cfg.Detail))
	}
	return nil
}

func analyzeLocal(ctx context.Context, cfg *Config, log logger.Logger) (*service.Analysis, error) {
	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := table.Read(filepath.Base(cfg.Input), f, cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Input, err)
	}

	mode, err := model.ParseScoreMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	rng := cfg.Range()
	skip := cfg.SkipRows
	svc := service.New(
		service.WithLogger(log),
		service.WithWorkers(cfg.Workers),
	)
	return svc.Analyze(ctx, t, service.Request{
		Range:    &rng,
		SkipRows: &skip,
		Mode:     mode,
		Resolver: cfg.Resolver(),
	})
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return write(f)
}
