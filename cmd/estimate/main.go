package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/estimatb/internal/cli"
	"github.com/okian/estimatb/internal/domain/model"
)

const defaultTimeout = 60 * time.Second

func main() {
	cfg := &cli.Config{}
	flag.StringVar(&cfg.Input, "in", "", "Input CSV or XLSX file")
	flag.StringVar(&cfg.Sheet, "sheet", "", "Worksheet name (default: first sheet)")
	flag.Float64Var(&cfg.TbMin, "tb-min", model.DefaultRange.Min, "Lowest candidate Tb in °C")
	flag.Float64Var(&cfg.TbMax, "tb-max", model.DefaultRange.Max, "Highest candidate Tb in °C")
	flag.Float64Var(&cfg.TbStep, "tb-step", model.DefaultRange.Step, "Candidate step in °C")
	flag.StringVar(&cfg.Mode, "mode", string(model.ScoreMSE), "Ranking metric: mse or r2")
	flag.IntVar(&cfg.SkipRows, "skip", 0, "Leading rows left out of the regression")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Candidates evaluated concurrently")
	flag.BoolVar(&cfg.Strict, "strict", false, "Require the exact headers Data, Tmin, Tmax, NF")
	flag.StringVar(&cfg.ColDate, "col-date", "", "Header of the date column")
	flag.StringVar(&cfg.ColTMin, "col-tmin", "", "Header of the minimum temperature column")
	flag.StringVar(&cfg.ColTMax, "col-tmax", "", "Header of the maximum temperature column")
	flag.StringVar(&cfg.ColNF, "col-nf", "", "Header of the leaf count column")
	flag.StringVar(&cfg.Output, "out", "", "Write the results table to this CSV file")
	flag.StringVar(&cfg.Detail, "detail", "", "Write the daily detail at the best Tb to this CSV file")
	flag.BoolVar(&cfg.BOM, "bom", false, "Prefix CSV output with a UTF-8 BOM for Excel")
	flag.StringVar(&cfg.Delimiter, "sep", "", "CSV output delimiter (default: comma)")
	flag.StringVar(&cfg.URL, "url", "", "Estimate on a running server instead of in process")
	flag.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout with -url")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	help := flag.Bool("help", false, "Show help")

	flag.Usage = func() {
		cli.ShowHelp(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if cfg.Input == "" && flag.NArg() > 0 {
		cfg.Input = flag.Arg(0)
	}

	if err := cli.SetupLogging(cfg.Verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cfg, os.Stdout); err != nil {
		os.Stderr.WriteString("estimate: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
