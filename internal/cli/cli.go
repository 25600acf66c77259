// Package cli runs estimations from the command line, either in process or
// against a running EstimaTB server.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/estimatb/pkg/logger"
)

// SetupLogging initializes the logger on stderr. Only warnings and errors
// are shown unless verbose is set.
func SetupLogging(verbose bool) error {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the estimate tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `EstimaTB: basal temperature estimation
======================================

Finds the base temperature (Tb) whose accumulated thermal sum best explains
the observed leaf counts, by linear regression over a grid of candidates.

Input is a CSV (comma, semicolon or tab separated) or XLSX file with a date
column, minimum and maximum daily temperature, and leaf counts (NF) on the
days they were measured.

Usage:
  estimate -in data.xlsx [-sheet S] [-tb-min 0] [-tb-max 20] [-tb-step 0.5]
           [-mode mse|r2] [-skip N] [-out results.csv] [-detail detail.csv]
           [-strict] [-col-date NAME] [-col-tmin NAME] [-col-tmax NAME]
           [-col-nf NAME] [-url http://localhost:9080]

Examples:
  estimate -in field.csv
  estimate -in field.xlsx -sheet 2024 -mode r2 -out tb.csv -detail days.csv
  estimate -in field.csv -col-date Quando -col-nf Folhas
  estimate -in field.csv -url http://localhost:9080

Flags:
`)
}
