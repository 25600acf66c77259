package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/okian/estimatb/internal/domain/estimator"
	"github.com/okian/estimatb/internal/domain/thermal"
)

// Column headers of the exported files.
var (
	ResultHeaders = []string{"Tb", "Score", "MSE", "R2", "Slope", "Intercept", "N", "Usable"}
	DetailHeaders = []string{"Day", "Date", "Tmin", "Tmax", "Tmed", "STd", "STa", "NF"}
)

// WriteOptions configures CSV output.
type WriteOptions struct {
	BOMPrefix bool // UTF-8 BOM so spreadsheet tools pick the right encoding
	Delimiter rune
}

func newWriter(w io.Writer, opts WriteOptions) (*csv.Writer, error) {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return cw, nil
}

// WriteResults writes one line per candidate. Score cells of unusable
// candidates are left empty.
func WriteResults(w io.Writer, res *estimator.Results, opts WriteOptions) error {
	cw, err := newWriter(w, opts)
	if err != nil {
		return err
	}
	if err := cw.Write(ResultHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, r := range res.Rows {
		rec := []string{formatFloat(r.Tb), "", "", "", "", "", strconv.Itoa(r.SampleSize), strconv.FormatBool(r.Usable)}
		if r.Usable {
			rec[1] = formatFloat(r.Score)
			rec[2] = formatFloat(r.MSE)
			rec[3] = formatFloat(r.R2)
			rec[4] = formatFloat(r.Slope)
			rec[5] = formatFloat(r.Intercept)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetail writes the per-day thermal profile. Day numbers start at 1 and
// missing values are left empty.
func WriteDetail(w io.Writer, days []thermal.Day, opts WriteOptions) error {
	cw, err := newWriter(w, opts)
	if err != nil {
		return err
	}
	if err := cw.Write(DetailHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, d := range days {
		nf := ""
		if d.Obs.HasLeafCount {
			nf = formatFloat(d.Obs.LeafCount)
		}
		rec := []string{
			strconv.Itoa(d.Index + 1),
			d.Obs.Date.Format(time.DateOnly),
			formatFloat(d.Obs.TMin),
			formatFloat(d.Obs.TMax),
			formatFloat(d.TMed),
			formatFloat(d.STd),
			formatFloat(d.STa),
			nf,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
