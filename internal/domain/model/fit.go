package model

import (
	"fmt"
	"math"
	"strings"
)

// ScoreMode selects the metric that ranks candidates.
type ScoreMode string

// Supported score modes.
const (
	ScoreMSE ScoreMode = "mse" // lower is better
	ScoreR2  ScoreMode = "r2"  // higher is better
)

// ParseScoreMode accepts "mse", "qme" or "r2" in any case.
func ParseScoreMode(s string) (ScoreMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mse", "qme":
		return ScoreMSE, nil
	case "r2", "r²":
		return ScoreR2, nil
	default:
		return "", fmt.Errorf("unknown score mode %q", s)
	}
}

// Better reports whether score a beats score b under the mode.
// Equal scores never win, which keeps the first candidate on ties.
func (m ScoreMode) Better(a, b float64) bool {
	if m == ScoreR2 {
		return a > b
	}
	return a < b
}

// CandidateRange is an inclusive grid of Tb values.
type CandidateRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// DefaultRange is 0..20 °C in 0.5 °C steps.
var DefaultRange = CandidateRange{Min: 0, Max: 20, Step: 0.5}

// rangeEpsilon absorbs float error when the span is an exact multiple of the step.
const (
	rangeEpsilon = 1e-9
	roundScale   = 1e9
)

// MaxCount bounds the grid size. Count saturates at MaxCount+1 for larger
// grids so callers can reject them without overflowing an int.
const MaxCount = 1 << 24

// Count returns the number of candidates, 0 for an invalid range, or
// MaxCount+1 when the grid is larger than MaxCount.
func (r CandidateRange) Count() int {
	if !(r.Step > 0) || math.IsInf(r.Step, 0) || !isFinite(r.Min) || !isFinite(r.Max) || r.Max < r.Min {
		return 0
	}
	steps := math.Floor((r.Max-r.Min)/r.Step + rangeEpsilon)
	if !isFinite(steps) || steps >= MaxCount {
		return MaxCount + 1
	}
	return int(steps) + 1
}

// Values returns the candidates in ascending order. Values are computed as
// Min + i*Step and rounded to 1e-9 so that repeated steps do not drift.
// Invalid or oversized ranges yield nil.
func (r CandidateRange) Values() []float64 {
	n := r.Count()
	if n == 0 || n > MaxCount {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Round((r.Min+float64(i)*r.Step)*roundScale) / roundScale
	}
	return out
}

// FitResult is the regression outcome for one candidate Tb.
type FitResult struct {
	Tb         float64 `json:"tb"`
	Score      float64 `json:"score"`
	MSE        float64 `json:"mse"`
	R2         float64 `json:"r2"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	SampleSize int     `json:"n"`
	// Usable is false when fewer than two sample points were available.
	// Unusable results carry zero scores and never become the best fit.
	Usable bool `json:"usable"`
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
