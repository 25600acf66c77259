// Package thermal computes daily and accumulated thermal sums over a series.
package thermal

import (
	"math"

	"github.com/okian/estimatb/internal/domain/model"
)

// MeanTemperature returns (tmin+tmax)/2.
func MeanTemperature(tmin, tmax float64) float64 {
	return (tmin + tmax) / 2
}

// DailySum returns max(tmed-tb, 0). A NaN mean contributes nothing.
func DailySum(tmed, tb float64) float64 {
	if math.IsNaN(tmed) {
		return 0
	}
	return math.Max(tmed-tb, 0)
}

// Accumulate returns the running sum of std.
func Accumulate(std []float64) []float64 {
	sta := make([]float64, len(std))
	var sum float64
	for i, v := range std {
		sum += v
		sta[i] = sum
	}
	return sta
}

// MeanTemperatures computes Tmed for every observation. It does not depend on Tb,
// so callers evaluating many candidates compute it once.
func MeanTemperatures(s model.Series) []float64 {
	tmed := make([]float64, len(s))
	for i, o := range s {
		tmed[i] = MeanTemperature(o.TMin, o.TMax)
	}
	return tmed
}

// AccumulatedFromMeans returns STa for tb given precomputed means.
func AccumulatedFromMeans(tmed []float64, tb float64) []float64 {
	sta := make([]float64, len(tmed))
	var sum float64
	for i, m := range tmed {
		sum += DailySum(m, tb)
		sta[i] = sum
	}
	return sta
}

// Day is one row of a thermal profile.
type Day struct {
	Index int
	Obs   model.Observation
	TMed  float64
	STd   float64
	STa   float64
}

// Profile returns per-day Tmed, STd and STa for tb.
func Profile(s model.Series, tb float64) []Day {
	days := make([]Day, len(s))
	var sum float64
	for i, o := range s {
		tmed := MeanTemperature(o.TMin, o.TMax)
		std := DailySum(tmed, tb)
		sum += std
		days[i] = Day{Index: i, Obs: o, TMed: tmed, STd: std, STa: sum}
	}
	return days
}
