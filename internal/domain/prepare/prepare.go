// Package prepare turns a raw table into a validated, date-ordered series.
package prepare

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/estimatb/internal/domain/model"
)

// maxListed caps how many offending values a message spells out in Text.
const maxListed = 10

// Option configures a Preparer.
type Option func(*Preparer)

// WithResolver sets the column resolver. The default is strict.
func WithResolver(r Resolver) Option {
	return func(p *Preparer) {
		if r != nil {
			p.resolver = r
		}
	}
}

// Preparer validates and normalizes tables. It is safe for concurrent use.
type Preparer struct {
	resolver Resolver
}

// New creates a Preparer.
func New(opts ...Option) *Preparer {
	p := &Preparer{resolver: NewStrictResolver()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of preparation. When Fatal is set Series must not be
// estimated; Messages explain why.
type Result struct {
	Series   model.Series    `json:"-"`
	Messages []model.Message `json:"messages"`
	Fatal    bool            `json:"fatal"`
	Columns  Columns         `json:"-"`
}

func (r *Result) add(m model.Message) {
	r.Messages = append(r.Messages, m)
	if m.Fatal() {
		r.Fatal = true
	}
}

// Prepare resolves columns, parses every non-blank row and runs the
// validation checks. Rows in messages are 1-based data row numbers.
func (p *Preparer) Prepare(ctx context.Context, t model.Table) Result {
	var res Result
	if err := ctx.Err(); err != nil {
		res.add(fatal(model.KindSchema, fmt.Sprintf("preparation cancelled: %v", err), nil, nil))
		return res
	}

	cols, err := p.resolver.Resolve(t.Headers)
	if err != nil {
		res.add(schemaMessage(err, t.Headers))
		return res
	}
	res.Columns = cols

	var rows []int
	for i := range t.Rows {
		if !t.BlankRow(i) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		res.add(fatal(model.KindSchema, "table has no data rows", nil, nil))
		return res
	}

	raw := make([]string, len(rows))
	for k, i := range rows {
		raw[k] = t.Cell(i, cols.Date)
	}
	dates, bad := parseDates(raw)
	if len(bad) > 0 {
		vals := make([]string, len(bad))
		nums := make([]int, len(bad))
		for k, b := range bad {
			vals[k] = raw[b]
			nums[k] = rows[b] + 1
		}
		res.add(fatal(model.KindParse,
			fmt.Sprintf("unparseable dates: %s", listValues(vals)), nums, vals))
		return res
	}

	s := make(model.Series, len(rows))
	var missingTemp, invalidTemp, invalidLeaf, inverted []int
	var invalidValues []string
	for k, i := range rows {
		o := model.Observation{Date: dates[k]}
		var lo, hi cellState
		o.TMin, lo = temperature(t.Cell(i, cols.TMin))
		o.TMax, hi = temperature(t.Cell(i, cols.TMax))
		if lo == cellInvalid {
			invalidTemp = append(invalidTemp, i+1)
			invalidValues = append(invalidValues, t.Cell(i, cols.TMin))
		}
		if hi == cellInvalid {
			invalidTemp = append(invalidTemp, i+1)
			invalidValues = append(invalidValues, t.Cell(i, cols.TMax))
		}
		if !o.HasTemperature() {
			missingTemp = append(missingTemp, i+1)
		} else if o.TMin > o.TMax {
			inverted = append(inverted, i+1)
		}

		nf, st := parseNumber(t.Cell(i, cols.LeafCount))
		switch st {
		case cellValue:
			o.LeafCount, o.HasLeafCount = nf, true
		case cellInvalid:
			invalidLeaf = append(invalidLeaf, i+1)
			invalidValues = append(invalidValues, t.Cell(i, cols.LeafCount))
		}
		s[k] = o
	}

	if len(invalidTemp)+len(invalidLeaf) > 0 {
		all := sortedRows(append(slices.Clone(invalidTemp), invalidLeaf...))
		res.add(warning(model.KindMissingValue,
			fmt.Sprintf("non-numeric values treated as missing at rows %s", listRows(all)),
			all, invalidValues))
	}
	if len(missingTemp) > 0 {
		res.add(warning(model.KindMissingValue,
			fmt.Sprintf("missing temperature at rows %s; those days add no thermal sum", listRows(missingTemp)),
			missingTemp, nil))
	}
	if len(inverted) > 0 {
		res.add(warning(model.KindTemperatureRange,
			fmt.Sprintf("Tmin greater than Tmax at rows %s", listRows(inverted)),
			inverted, nil))
	}
	if dec := leafDecreases(s, rows); len(dec) > 0 {
		res.add(warning(model.KindLeafDecrease,
			fmt.Sprintf("leaf count decreases at rows %s", listRows(dec)),
			dec, nil))
	}
	if ord, vals := disorderedDates(s, rows); len(ord) > 0 {
		res.add(fatal(model.KindOrder,
			fmt.Sprintf("dates must be strictly increasing; offending rows %s", listRows(ord)),
			ord, vals))
	}

	if res.Fatal {
		return res
	}
	res.Series = s
	return res
}

func temperature(v string) (float64, cellState) {
	f, st := parseNumber(v)
	if st != cellValue {
		return math.NaN(), st
	}
	return f, st
}

// leafDecreases compares each leaf count with the previous non-missing one.
func leafDecreases(s model.Series, rows []int) []int {
	var out []int
	prev, seen := 0.0, false
	for k, o := range s {
		if !o.HasLeafCount {
			continue
		}
		if seen && o.LeafCount < prev {
			out = append(out, rows[k]+1)
		}
		prev, seen = o.LeafCount, true
	}
	return out
}

func disorderedDates(s model.Series, rows []int) ([]int, []string) {
	var out []int
	var vals []string
	for k := 1; k < len(s); k++ {
		if !s[k].Date.After(s[k-1].Date) {
			out = append(out, rows[k]+1)
			vals = append(vals, s[k].Date.Format(time.DateOnly))
		}
	}
	return out, vals
}

func schemaMessage(err error, headers []string) model.Message {
	var vals []string
	var se *SchemaError
	if errors.As(err, &se) {
		vals = append(append(vals, se.Missing...), se.Ambiguous...)
	}
	m := fatal(model.KindSchema, fmt.Sprintf("cannot resolve columns: %v", err), nil, vals)
	if len(vals) == 0 {
		m.Values = trimmed(headers)
	}
	return m
}

func warning(kind model.MessageKind, text string, rows []int, vals []string) model.Message {
	return model.Message{Kind: kind, Severity: model.SeverityWarning, Text: text, Rows: rows, Values: vals}
}

func fatal(kind model.MessageKind, text string, rows []int, vals []string) model.Message {
	return model.Message{Kind: kind, Severity: model.SeverityFatal, Text: text, Rows: rows, Values: vals}
}

func listRows(rows []int) string {
	parts := make([]string, 0, min(len(rows), maxListed))
	for i, r := range rows {
		if i == maxListed {
			break
		}
		parts = append(parts, strconv.Itoa(r))
	}
	return truncated(parts, len(rows))
}

func listValues(vals []string) string {
	parts := make([]string, 0, min(len(vals), maxListed))
	for i, v := range vals {
		if i == maxListed {
			break
		}
		parts = append(parts, strconv.Quote(v))
	}
	return truncated(parts, len(vals))
}

func truncated(parts []string, total int) string {
	s := strings.Join(parts, ", ")
	if total > len(parts) {
		s += fmt.Sprintf(" and %d more", total-len(parts))
	}
	return s
}

func sortedRows(rows []int) []int {
	out := slices.Clone(rows)
	slices.Sort(out)
	return slices.Compact(out)
}
