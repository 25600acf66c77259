// Package estimator searches a grid of basal temperatures for the one whose
// accumulated thermal sum best explains leaf-count growth.
package estimator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/regression"
	"github.com/okian/estimatb/internal/domain/thermal"
)

// Default estimator configuration constants.
const (
	defaultWorkers       = 1
	defaultMaxCandidates = 10_000
)

// Sentinel errors.
var (
	ErrInvalidRange      = errors.New("invalid candidate range")
	ErrTooManyCandidates = errors.New("too many candidates")
	ErrInvalidScoreMode  = errors.New("invalid score mode")
	ErrInvalidSkipRows   = errors.New("invalid skip rows")
	ErrNoUsableFit       = errors.New("no usable fit")
)

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithRange sets the candidate grid. It is validated by Estimate.
func WithRange(r model.CandidateRange) Option {
	return func(e *Estimator) {
		e.rng = r
	}
}

// WithSkipRows excludes the first n series rows from the regression sample.
// Accumulation still starts at row 0.
func WithSkipRows(n int) Option {
	return func(e *Estimator) {
		e.skipRows = n
	}
}

// WithScoreMode selects the metric that ranks candidates.
func WithScoreMode(m model.ScoreMode) Option {
	return func(e *Estimator) {
		e.mode = m
	}
}

// WithWorkers sets how many candidates are evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxCandidates caps the grid size.
func WithMaxCandidates(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.maxCandidates = n
		}
	}
}

// Estimator runs the Tb grid search. It holds configuration only and is safe
// for concurrent use.
type Estimator struct {
	rng           model.CandidateRange
	skipRows      int
	mode          model.ScoreMode
	workers       int
	maxCandidates int
}

// New creates an estimator over the default 0..20 °C grid scored by MSE.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		rng:           model.DefaultRange,
		mode:          model.ScoreMSE,
		workers:       defaultWorkers,
		maxCandidates: defaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Range returns the configured candidate grid.
func (e *Estimator) Range() model.CandidateRange { return e.rng }

// Mode returns the configured score mode.
func (e *Estimator) Mode() model.ScoreMode { return e.mode }

// Results holds one row per candidate in ascending Tb order and the best fit.
type Results struct {
	Mode     model.ScoreMode      `json:"score_mode"`
	Range    model.CandidateRange `json:"range"`
	SkipRows int                  `json:"skip_rows"`
	Rows     []model.FitResult    `json:"results"`
	// Best is nil when no candidate had a usable sample.
	Best *model.FitResult `json:"best"`
}

// BestFit returns the selected fit or ErrNoUsableFit.
func (r *Results) BestFit() (model.FitResult, error) {
	if r == nil || r.Best == nil {
		return model.FitResult{}, ErrNoUsableFit
	}
	return *r.Best, nil
}

// Unusable counts candidates that could not be scored.
func (r *Results) Unusable() int {
	n := 0
	for _, row := range r.Rows {
		if !row.Usable {
			n++
		}
	}
	return n
}

// Validate checks the configuration without running a search.
func (e *Estimator) Validate() error {
	if e.mode != model.ScoreMSE && e.mode != model.ScoreR2 {
		return fmt.Errorf("%w: %q", ErrInvalidScoreMode, e.mode)
	}
	if e.skipRows < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSkipRows, e.skipRows)
	}
	n := e.rng.Count()
	if n <= 0 {
		return fmt.Errorf("%w: min=%g max=%g step=%g", ErrInvalidRange, e.rng.Min, e.rng.Max, e.rng.Step)
	}
	if n > model.MaxCount {
		return fmt.Errorf("%w: more than %d", ErrTooManyCandidates, model.MaxCount)
	}
	if n > e.maxCandidates {
		return fmt.Errorf("%w: %d exceeds %d", ErrTooManyCandidates, n, e.maxCandidates)
	}
	return nil
}

// Estimate evaluates every candidate against s and selects the best one.
// Candidates with fewer than two sample points are kept as unusable rows.
func (e *Estimator) Estimate(ctx context.Context, s model.Series) (*Results, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	in := newSample(s, e.skipRows)
	candidates := e.rng.Values()
	rows := make([]model.FitResult, len(candidates))

	if e.workers <= 1 {
		for i, tb := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("estimate: %w", err)
			}
			rows[i] = in.evaluate(tb, e.mode)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, tb := range candidates {
			i, tb := i, tb
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows[i] = in.evaluate(tb, e.mode)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("estimate: %w", err)
		}
	}

	res := &Results{Mode: e.mode, Range: e.rng, SkipRows: e.skipRows, Rows: rows}
	res.Best = selectBest(rows, e.mode)
	return res, nil
}

// selectBest is a stable argmin/argmax over usable rows.
func selectBest(rows []model.FitResult, mode model.ScoreMode) *model.FitResult {
	best := -1
	for i, r := range rows {
		if !r.Usable {
			continue
		}
		if best < 0 || mode.Better(r.Score, rows[best].Score) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	b := rows[best]
	return &b
}

// sample is the Tb-independent part of the search: daily means and the
// indices of observations that enter the regression.
type sample struct {
	tmed []float64
	idx  []int
	y    []float64
}

func newSample(s model.Series, skip int) sample {
	sm := sample{tmed: thermal.MeanTemperatures(s)}
	for i, o := range s {
		if i < skip || !o.HasLeafCount {
			continue
		}
		sm.idx = append(sm.idx, i)
		sm.y = append(sm.y, o.LeafCount)
	}
	return sm
}

func (sm sample) evaluate(tb float64, mode model.ScoreMode) model.FitResult {
	out := model.FitResult{Tb: tb, SampleSize: len(sm.idx)}
	if len(sm.idx) < regression.MinSample {
		return out
	}

	sta := thermal.AccumulatedFromMeans(sm.tmed, tb)
	x := make([]float64, len(sm.idx))
	for k, i := range sm.idx {
		x[k] = sta[i]
	}

	fit, err := regression.Linear(x, sm.y)
	if err != nil {
		return out
	}
	out.Usable = true
	out.Slope = fit.Slope
	out.Intercept = fit.Intercept
	out.MSE = fit.MSE
	out.R2 = fit.R2
	if mode == model.ScoreR2 {
		out.Score = fit.R2
	} else {
		out.Score = fit.MSE
	}
	return out
}
