// Package regression fits single-variable ordinary least squares lines.
package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinSample is the smallest sample that defines a line.
const MinSample = 2

// Sentinel errors.
var (
	ErrInsufficientSample = errors.New("insufficient sample")
	ErrLengthMismatch     = errors.New("x and y lengths differ")
	ErrNonFinite          = errors.New("fit is not finite")
)

// Fit is an OLS line y = Slope*x + Intercept with its goodness of fit.
type Fit struct {
	Slope     float64
	Intercept float64
	MSE       float64 // mean of squared residuals over n
	R2        float64
	N         int
}

// Predict evaluates the fitted line at x.
func (f Fit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// Linear fits y against x. When x has no spread the slope is 0 and the
// intercept is the mean of y. Inputs that overflow the sums yield
// ErrNonFinite.
func Linear(x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("fit %d x against %d y: %w", len(x), len(y), ErrLengthMismatch)
	}
	n := len(x)
	if n < MinSample {
		return Fit{}, fmt.Errorf("fit %d points: %w", n, ErrInsufficientSample)
	}

	f := Fit{N: n}
	if stat.Variance(x, nil) == 0 {
		f.Intercept = stat.Mean(y, nil)
	} else {
		// gonum returns the intercept first.
		f.Intercept, f.Slope = stat.LinearRegression(x, y, nil, false)
	}

	estimates := make([]float64, n)
	var ssRes float64
	for i := range x {
		estimates[i] = f.Predict(x[i])
		r := y[i] - estimates[i]
		ssRes += r * r
	}
	f.MSE = ssRes / float64(n)

	// A constant response has no variance to explain: the fit is perfect
	// when the residuals vanish and worthless otherwise.
	if stat.Variance(y, nil) == 0 {
		if ssRes == 0 {
			f.R2 = 1
		}
	} else {
		f.R2 = stat.RSquaredFrom(estimates, y, nil)
	}
	for _, v := range []float64{f.Slope, f.Intercept, f.MSE, f.R2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Fit{}, fmt.Errorf("fit %d points: %w", n, ErrNonFinite)
		}
	}
	return f, nil
}
