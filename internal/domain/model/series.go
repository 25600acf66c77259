// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Observation is one calendar day of weather with an optional leaf count.
type Observation struct {
	Date time.Time
	TMin float64 // NaN when the cell was missing or non-numeric
	TMax float64 // NaN when the cell was missing or non-numeric

	LeafCount    float64
	HasLeafCount bool // true only on measurement days
}

// HasTemperature reports whether both temperature readings are present.
func (o Observation) HasTemperature() bool {
	return !math.IsNaN(o.TMin) && !math.IsNaN(o.TMax)
}

// Series is a date-ordered sequence of observations covering one growth cycle.
// Dates are strictly increasing; the preparer refuses to build one otherwise.
type Series []Observation

// Len returns the number of days.
func (s Series) Len() int { return len(s) }

// Measurements returns the number of days with a leaf count.
func (s Series) Measurements() int {
	n := 0
	for _, o := range s {
		if o.HasLeafCount {
			n++
		}
	}
	return n
}

// Span returns the first and last dates. Both are zero for an empty series.
func (s Series) Span() (time.Time, time.Time) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}
	}
	return s[0].Date, s[len(s)-1].Date
}
