// Package service ties preparation, estimation and interpretation together
// and implements the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/estimatb/internal/domain/estimator"
	"github.com/okian/estimatb/internal/domain/interpret"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/prepare"
	"github.com/okian/estimatb/internal/domain/thermal"
	"github.com/okian/estimatb/pkg/logger"
	"github.com/okian/estimatb/pkg/metrics"
)

const (
	defaultWorkers       = 1
	defaultMaxCandidates = 10_000
)

// ErrInvalidData marks an analysis stopped by a fatal validation message.
var ErrInvalidData = errors.New("invalid input data")

// Request carries the per-analysis parameters. Zero values fall back to the
// service defaults.
type Request struct {
	Range    *model.CandidateRange
	SkipRows *int
	Mode     model.ScoreMode
	Resolver prepare.Resolver
}

// Analysis is the outcome of one run. Results and the fields derived from
// the best fit are nil when preparation was fatal or nothing was usable.
type Analysis struct {
	RunID        string                `json:"run_id"`
	Messages     []model.Message       `json:"messages"`
	Fatal        bool                  `json:"fatal"`
	Days         int                   `json:"days"`
	Measurements int                   `json:"measurements"`
	Results      *estimator.Results    `json:"estimation,omitempty"`
	Assessment   *interpret.Assessment `json:"assessment,omitempty"`
	Detail       []thermal.Day         `json:"-"`
	Elapsed      time.Duration         `json:"-"`
}

// Best returns the selected fit, or nil.
func (a *Analysis) Best() *model.FitResult {
	if a == nil || a.Results == nil {
		return nil
	}
	return a.Results.Best
}

// Service runs analyses. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	mu sync.RWMutex

	// Defaults
	rng           model.CandidateRange
	skipRows      int
	mode          model.ScoreMode
	workers       int
	maxCandidates int
	resolver      prepare.Resolver

	// State
	started   bool
	startedAt time.Time
	analyses  atomic.Int64
	succeeded atomic.Int64
	fatal     atomic.Int64
	noFit     atomic.Int64
	lastRunID atomic.Value

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRange sets the default candidate grid.
func WithRange(r model.CandidateRange) Option {
	return func(s *Service) {
		s.rng = r
	}
}

// WithSkipRows sets the default number of leading rows left out of the fit.
func WithSkipRows(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.skipRows = n
		}
	}
}

// WithScoreMode sets the default ranking metric.
func WithScoreMode(m model.ScoreMode) Option {
	return func(s *Service) {
		if m != "" {
			s.mode = m
		}
	}
}

// WithWorkers sets how many candidates each analysis evaluates concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxCandidates caps the grid size of a request.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithResolver sets the default column resolver.
func WithResolver(r prepare.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rng:           model.DefaultRange,
		mode:          model.ScoreMSE,
		workers:       defaultWorkers,
		maxCandidates: defaultMaxCandidates,
		resolver:      prepare.NewStrictResolver(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.lastRunID.Store("")

	return s
}

// Start marks the service ready and logs its defaults.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "estimation service started",
		logger.Float64("tb_min", s.rng.Min),
		logger.Float64("tb_max", s.rng.Max),
		logger.Float64("tb_step", s.rng.Step),
		logger.String("score_mode", string(s.mode)),
		logger.Int("workers", s.workers),
	)
	return nil
}

// Stop marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "estimation service stopped",
		logger.Int("analyses", int(s.analyses.Load())))
}

// Estimator builds the estimator a request would use. Configuration errors
// surface from its Validate method.
func (s *Service) Estimator(req Request) *estimator.Estimator {
	rng := s.rng
	if req.Range != nil {
		rng = *req.Range
	}
	skip := s.skipRows
	if req.SkipRows != nil {
		skip = *req.SkipRows
	}
	mode := s.mode
	if req.Mode != "" {
		mode = req.Mode
	}
	return estimator.New(
		estimator.WithRange(rng),
		estimator.WithSkipRows(skip),
		estimator.WithScoreMode(mode),
		estimator.WithWorkers(s.workers),
		estimator.WithMaxCandidates(s.maxCandidates),
	)
}

// Analyze prepares t, runs the grid search and interprets the best fit.
//
// The returned Analysis is non-nil whenever the request parameters were
// valid. err wraps ErrInvalidData when preparation was fatal and
// estimator.ErrNoUsableFit when no candidate could be scored.
func (s *Service) Analyze(ctx context.Context, t model.Table, req Request) (*Analysis, error) {
	est := s.Estimator(req)
	if err := est.Validate(); err != nil {
		metrics.RecordErrorByComponent("app", "invalid_request")
		return nil, err
	}

	start := time.Now()
	a := &Analysis{RunID: uuid.NewString()}
	s.analyses.Add(1)
	s.lastRunID.Store(a.RunID)
	log := s.logger.Named("analysis")

	resolver := s.resolver
	if req.Resolver != nil {
		resolver = req.Resolver
	}
	prep := prepare.New(prepare.WithResolver(resolver)).Prepare(ctx, t)
	a.Messages = prep.Messages
	a.Fatal = prep.Fatal
	for _, m := range prep.Messages {
		metrics.RecordValidationMessage(string(m.Kind), string(m.Severity))
		log.Debug(ctx, "validation message",
			logger.String("run_id", a.RunID),
			logger.String("kind", string(m.Kind)),
			logger.String("severity", string(m.Severity)),
			logger.String("text", m.Text),
		)
	}
	if prep.Fatal {
		s.fatal.Add(1)
		metrics.RecordAnalysis(metrics.OutcomeFatal)
		log.Warn(ctx, "input rejected",
			logger.String("run_id", a.RunID),
			logger.Int("messages", len(prep.Messages)),
		)
		return a, fmt.Errorf("%w: %s", ErrInvalidData, firstFatal(prep.Messages))
	}

	a.Days = prep.Series.Len()
	a.Measurements = prep.Series.Measurements()
	metrics.RecordSeriesDays(a.Days)

	searchStart := time.Now()
	res, err := est.Estimate(ctx, prep.Series)
	if err != nil {
		metrics.RecordAnalysis(metrics.OutcomeError)
		metrics.RecordErrorByComponent("estimator", "estimate")
		log.Error(ctx, "estimation failed", logger.String("run_id", a.RunID), logger.Error(err))
		return a, err
	}
	metrics.RecordEstimationLatency(float64(time.Since(searchStart).Microseconds()) / 1000)
	metrics.RecordCandidates(len(res.Rows), res.Unusable())
	a.Results = res

	best, err := res.BestFit()
	if err != nil {
		s.noFit.Add(1)
		metrics.RecordAnalysis(metrics.OutcomeNoFit)
		log.Warn(ctx, "no usable fit",
			logger.String("run_id", a.RunID),
			logger.Int("measurements", a.Measurements),
			logger.Int("skip_rows", res.SkipRows),
		)
		a.Elapsed = time.Since(start)
		return a, fmt.Errorf("%d measurements after skipping %d rows: %w", a.Measurements, res.SkipRows, err)
	}

	assessment := interpret.Assess(best)
	a.Assessment = &assessment
	a.Detail = thermal.Profile(prep.Series, best.Tb)
	a.Elapsed = time.Since(start)

	s.succeeded.Add(1)
	metrics.RecordAnalysis(metrics.OutcomeOK)
	log.Info(ctx, "analysis complete",
		logger.String("run_id", a.RunID),
		logger.Float64("tb", best.Tb),
		logger.Float64("score", best.Score),
		logger.String("score_mode", string(res.Mode)),
		logger.Int("candidates", len(res.Rows)),
		logger.Int("days", a.Days),
		logger.Duration("elapsed", a.Elapsed),
	)
	return a, nil
}

func firstFatal(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Fatal() {
			return m.Text
		}
	}
	return ""
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workers":       s.workers,
		"maxCandidates": s.maxCandidates,
		"scoreMode":     string(s.mode),
		"range":         s.rng,
		"analyses":      s.analyses.Load(),
		"succeeded":     s.succeeded.Load(),
		"fatal":         s.fatal.Load(),
		"noFit":         s.noFit.Load(),
		"lastRunID":     s.lastRunID.Load(),
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	return stats
}
