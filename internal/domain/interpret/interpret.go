// Package interpret gives a categorical reading of a best fit.
package interpret

import (
	"fmt"

	"github.com/okian/estimatb/internal/domain/model"
)

// Quality of the fit, from R².
type Quality string

// Quality levels.
const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityModerate  Quality = "moderate"
	QualityWeak      Quality = "weak"
)

// TbClass buckets the basal temperature.
type TbClass string

// Tb classes.
const (
	TbLow      TbClass = "low"
	TbModerate TbClass = "moderate"
	TbHigh     TbClass = "high"
)

// Rate of leaf emission per degree-day, from the slope.
type Rate string

// Development rates.
const (
	RateFast     Rate = "fast"
	RateModerate Rate = "moderate"
	RateSlow     Rate = "slow"
)

// Thresholds.
const (
	r2Excellent = 0.9
	r2Good      = 0.8
	r2Moderate  = 0.7

	tbLowBelow    = 8.0
	tbModerateMax = 12.0

	slopeFast     = 0.01
	slopeModerate = 0.005
)

// Assessment is the categorical reading plus one sentence per category.
type Assessment struct {
	Quality   Quality  `json:"quality"`
	TbClass   TbClass  `json:"tb_class"`
	Rate      Rate     `json:"rate"`
	Sentences []string `json:"sentences"`
}

// ClassifyQuality maps R² to a quality level.
func ClassifyQuality(r2 float64) Quality {
	switch {
	case r2 >= r2Excellent:
		return QualityExcellent
	case r2 >= r2Good:
		return QualityGood
	case r2 >= r2Moderate:
		return QualityModerate
	default:
		return QualityWeak
	}
}

// ClassifyTb maps a basal temperature in °C to a class.
func ClassifyTb(tb float64) TbClass {
	switch {
	case tb < tbLowBelow:
		return TbLow
	case tb <= tbModerateMax:
		return TbModerate
	default:
		return TbHigh
	}
}

// ClassifyRate maps a slope in leaves per °C·day to a rate.
func ClassifyRate(slope float64) Rate {
	switch {
	case slope > slopeFast:
		return RateFast
	case slope > slopeModerate:
		return RateModerate
	default:
		return RateSlow
	}
}

// Assess reads a fit. R² is used for quality whatever metric selected it.
func Assess(f model.FitResult) Assessment {
	a := Assessment{
		Quality: ClassifyQuality(f.R2),
		TbClass: ClassifyTb(f.Tb),
		Rate:    ClassifyRate(f.Slope),
	}
	a.Sentences = []string{
		qualitySentence(a.Quality, f.R2),
		tbSentence(a.TbClass, f.Tb),
		rateSentence(a.Rate, f.Slope),
	}
	return a
}

func qualitySentence(q Quality, r2 float64) string {
	switch q {
	case QualityExcellent:
		return fmt.Sprintf("Excellent fit: R² %.4f, the model explains more than 90%% of the variation in leaf count.", r2)
	case QualityGood:
		return fmt.Sprintf("Good fit: R² %.4f, the model explains more than 80%% of the variation in leaf count.", r2)
	case QualityModerate:
		return fmt.Sprintf("Moderate fit: R² %.4f explains more than 70%% of the variation; other factors may contribute.", r2)
	default:
		return fmt.Sprintf("Weak fit: R² %.4f suggests factors other than temperature drive development.", r2)
	}
}

func tbSentence(c TbClass, tb float64) string {
	switch c {
	case TbLow:
		return fmt.Sprintf("Low Tb (%g °C): the crop keeps developing at fairly low temperatures.", tb)
	case TbModerate:
		return fmt.Sprintf("Moderate Tb (%g °C): a typical value indicating normal development.", tb)
	default:
		return fmt.Sprintf("High Tb (%g °C): the cultivar may need warmer conditions to develop.", tb)
	}
}

func rateSentence(r Rate, slope float64) string {
	switch r {
	case RateFast:
		return fmt.Sprintf("Fast development: slope %.6f leaves per degree-day.", slope)
	case RateModerate:
		return fmt.Sprintf("Moderate development: slope %.6f leaves per degree-day.", slope)
	default:
		return fmt.Sprintf("Slow development: slope %.6f leaves per degree-day; growth may be limited by other factors.", slope)
	}
}
