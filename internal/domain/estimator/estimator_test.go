package estimator_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/estimatb/internal/domain/estimator"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/thermal"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

func buildSeries(tmin, tmax, nf []float64) model.Series {
	s := make(model.Series, len(tmin))
	for i := range tmin {
		s[i] = model.Observation{Date: day0.AddDate(0, 0, i), TMin: tmin[i], TMax: tmax[i]}
		if !math.IsNaN(nf[i]) {
			s[i].LeafCount = nf[i]
			s[i].HasLeafCount = true
		}
	}
	return s
}

func fiveDaySeries() model.Series {
	nan := math.NaN()
	return buildSeries(
		[]float64{10, 12, 14, 16, 18},
		[]float64{20, 22, 24, 26, 28},
		[]float64{nan, 2, nan, 5, 8},
	)
}

// linearSeries has leaf counts that are an exact linear function of STa at trueTb.
func linearSeries(trueTb float64) model.Series {
	const days = 60
	s := make(model.Series, days)
	for i := range s {
		tmed := 15 + 8*math.Sin(float64(i)*0.7) + 0.1*float64(i%5)
		s[i] = model.Observation{Date: day0.AddDate(0, 0, i), TMin: tmed - 5, TMax: tmed + 5}
	}
	for _, d := range thermal.Profile(s, trueTb) {
		if d.Index%3 == 0 {
			s[d.Index].LeafCount = 0.02*d.STa + 0.5
			s[d.Index].HasLeafCount = true
		}
	}
	return s
}

func TestEstimate_FiveDayScenario(t *testing.T) {
	Convey("Given five days with three leaf measurements and Tb in 0..10 step 5", t, func() {
		s := fiveDaySeries()
		rng := model.CandidateRange{Min: 0, Max: 10, Step: 5}

		Convey("When estimating by MSE", func() {
			res, err := estimator.New(estimator.WithRange(rng)).Estimate(context.Background(), s)

			Convey("Then three candidates are each fitted on three points", func() {
				So(err, ShouldBeNil)
				So(res.Rows, ShouldHaveLength, 3)
				for i, tb := range []float64{0, 5, 10} {
					So(res.Rows[i].Tb, ShouldEqual, tb)
					So(res.Rows[i].Usable, ShouldBeTrue)
					So(res.Rows[i].SampleSize, ShouldEqual, 3)
					So(res.Rows[i].Score, ShouldEqual, res.Rows[i].MSE)
				}
				So(res.Rows[0].MSE, ShouldAlmostEqual, 0.142177763, 1e-8)
				So(res.Rows[1].MSE, ShouldAlmostEqual, 0.122448980, 1e-8)
				So(res.Rows[2].MSE, ShouldAlmostEqual, 0.088661037, 1e-8)
				So(res.Rows[1].Slope, ShouldAlmostEqual, 6.0/49.0, 1e-12)
			})

			Convey("And the lowest MSE is selected", func() {
				best, err := res.BestFit()
				So(err, ShouldBeNil)
				So(best.Tb, ShouldEqual, 10)
				So(res.Mode, ShouldEqual, model.ScoreMSE)
			})
		})

		Convey("When estimating by R2", func() {
			res, err := estimator.New(
				estimator.WithRange(rng),
				estimator.WithScoreMode(model.ScoreR2),
			).Estimate(context.Background(), s)

			Convey("Then the highest R2 is selected", func() {
				So(err, ShouldBeNil)
				So(res.Best, ShouldNotBeNil)
				So(res.Best.Tb, ShouldEqual, 10)
				So(res.Best.Score, ShouldAlmostEqual, 0.985223160, 1e-8)
				So(res.Rows[0].Score, ShouldEqual, res.Rows[0].R2)
			})
		})
	})
}

func TestEstimate_RecoversTrueTb(t *testing.T) {
	Convey("Given leaf counts linear in STa at Tb=8", t, func() {
		s := linearSeries(8)

		for _, mode := range []model.ScoreMode{model.ScoreMSE, model.ScoreR2} {
			Convey("When searching the default grid by "+string(mode), func() {
				res, err := estimator.New(estimator.WithScoreMode(mode)).Estimate(context.Background(), s)

				Convey("Then Tb=8 is found with a perfect fit", func() {
					So(err, ShouldBeNil)
					So(res.Rows, ShouldHaveLength, model.DefaultRange.Count())
					So(res.Best, ShouldNotBeNil)
					So(res.Best.Tb, ShouldEqual, 8)
					So(res.Best.MSE, ShouldAlmostEqual, 0, 1e-9)
					So(res.Best.R2, ShouldAlmostEqual, 1, 1e-9)
					So(res.Best.Slope, ShouldAlmostEqual, 0.02, 1e-9)
					So(res.Best.Intercept, ShouldAlmostEqual, 0.5, 1e-7)
				})
			})
		}
	})
}

func TestEstimate_ResultLength(t *testing.T) {
	Convey("Given several ranges", t, func() {
		s := linearSeries(10)
		for _, rng := range []model.CandidateRange{
			{Min: 0, Max: 20, Step: 0.5},
			{Min: 5, Max: 15, Step: 0.5},
			{Min: 2, Max: 3, Step: 0.25},
			{Min: 7, Max: 7, Step: 1},
		} {
			res, err := estimator.New(estimator.WithRange(rng)).Estimate(context.Background(), s)
			So(err, ShouldBeNil)
			So(len(res.Rows), ShouldEqual, int(math.Round((rng.Max-rng.Min)/rng.Step))+1)
			for i := 1; i < len(res.Rows); i++ {
				So(res.Rows[i].Tb, ShouldBeGreaterThan, res.Rows[i-1].Tb)
			}
		}
	})
}

func TestEstimate_Degenerate(t *testing.T) {
	Convey("Given a series without any leaf count", t, func() {
		nan := math.NaN()
		s := buildSeries(
			[]float64{10, 12, 14},
			[]float64{20, 22, 24},
			[]float64{nan, nan, nan},
		)

		Convey("When estimating", func() {
			var res *estimator.Results
			var err error
			So(func() { res, err = estimator.New().Estimate(context.Background(), s) }, ShouldNotPanic)

			Convey("Then every candidate is unusable and no fit is selected", func() {
				So(err, ShouldBeNil)
				So(res.Best, ShouldBeNil)
				So(res.Unusable(), ShouldEqual, len(res.Rows))
				_, berr := res.BestFit()
				So(errors.Is(berr, estimator.ErrNoUsableFit), ShouldBeTrue)
			})
		})
	})

	Convey("Given an empty series", t, func() {
		res, err := estimator.New(estimator.WithScoreMode(model.ScoreR2)).Estimate(context.Background(), nil)
		So(err, ShouldBeNil)
		So(res.Best, ShouldBeNil)
		for _, r := range res.Rows {
			So(r.Score, ShouldEqual, 0)
			So(r.Usable, ShouldBeFalse)
		}
	})
}

func TestEstimate_Overflow(t *testing.T) {
	Convey("Given temperatures whose mean overflows", t, func() {
		s := fiveDaySeries()
		s[0].TMin, s[0].TMax = 1e308, 1e308

		res, err := estimator.New(estimator.WithRange(model.CandidateRange{Min: 0, Max: 10, Step: 5})).
			Estimate(context.Background(), s)

		Convey("Then no candidate is usable and nothing is selected", func() {
			So(err, ShouldBeNil)
			So(res.Best, ShouldBeNil)
			So(res.Unusable(), ShouldEqual, 3)
			for _, r := range res.Rows {
				So(math.IsNaN(r.Score), ShouldBeFalse)
				So(r.Score, ShouldEqual, 0)
			}
		})
	})
}

func TestEstimate_SkipRows(t *testing.T) {
	Convey("Given the five-day series", t, func() {
		s := fiveDaySeries()
		rng := model.CandidateRange{Min: 0, Max: 10, Step: 5}

		Convey("When the first two rows are skipped", func() {
			res, err := estimator.New(estimator.WithRange(rng), estimator.WithSkipRows(2)).Estimate(context.Background(), s)

			Convey("Then only two points remain and every fit is exact", func() {
				So(err, ShouldBeNil)
				for _, r := range res.Rows {
					So(r.SampleSize, ShouldEqual, 2)
					So(r.MSE, ShouldAlmostEqual, 0, 1e-12)
				}
			})

			Convey("And accumulation still starts at day zero", func() {
				// Tb=0: STa at rows 3 and 4 is 72 and 95, so the slope is 3/23.
				So(res.Rows[0].Slope, ShouldAlmostEqual, 3.0/23.0, 1e-12)
			})
		})

		Convey("When all but one measurement is skipped", func() {
			res, err := estimator.New(estimator.WithRange(rng), estimator.WithSkipRows(4)).Estimate(context.Background(), s)

			Convey("Then no candidate is usable", func() {
				So(err, ShouldBeNil)
				So(res.Best, ShouldBeNil)
				So(res.Rows[0].SampleSize, ShouldEqual, 1)
			})
		})

		Convey("When the skip exceeds the series", func() {
			res, err := estimator.New(estimator.WithRange(rng), estimator.WithSkipRows(50)).Estimate(context.Background(), s)
			So(err, ShouldBeNil)
			So(res.Best, ShouldBeNil)
		})
	})
}

func TestEstimate_TieBreak(t *testing.T) {
	Convey("Given a constant leaf count that every candidate fits exactly", t, func() {
		nan := math.NaN()
		s := buildSeries(
			[]float64{10, 12, 14, 16, 18},
			[]float64{20, 22, 24, 26, 28},
			[]float64{nan, 4, nan, 4, 4},
		)
		rng := model.CandidateRange{Min: 0, Max: 10, Step: 2.5}

		for _, mode := range []model.ScoreMode{model.ScoreMSE, model.ScoreR2} {
			Convey("When scoring by "+string(mode), func() {
				res, err := estimator.New(estimator.WithRange(rng), estimator.WithScoreMode(mode)).Estimate(context.Background(), s)

				Convey("Then all scores tie and the lowest Tb wins", func() {
					So(err, ShouldBeNil)
					for _, r := range res.Rows {
						So(r.Score, ShouldEqual, res.Rows[0].Score)
					}
					So(res.Best.Tb, ShouldEqual, 0)
				})
			})
		}
	})
}

func TestEstimate_Determinism(t *testing.T) {
	Convey("Given identical inputs", t, func() {
		s := linearSeries(6.5)
		ctx := context.Background()

		Convey("When estimating twice sequentially and once in parallel", func() {
			a, err := estimator.New().Estimate(ctx, s)
			So(err, ShouldBeNil)
			b, err := estimator.New().Estimate(ctx, s)
			So(err, ShouldBeNil)
			c, err := estimator.New(estimator.WithWorkers(8)).Estimate(ctx, s)
			So(err, ShouldBeNil)

			Convey("Then the results are identical", func() {
				So(b, ShouldResemble, a)
				So(c, ShouldResemble, a)
				So(a.Best.Tb, ShouldEqual, 6.5)
			})
		})
	})
}

func TestEstimate_Validation(t *testing.T) {
	Convey("Given invalid configurations", t, func() {
		ctx := context.Background()
		s := fiveDaySeries()

		_, err := estimator.New(estimator.WithRange(model.CandidateRange{Min: 0, Max: 10, Step: 0})).Estimate(ctx, s)
		So(errors.Is(err, estimator.ErrInvalidRange), ShouldBeTrue)

		_, err = estimator.New(estimator.WithRange(model.CandidateRange{Min: 10, Max: 0, Step: 1})).Estimate(ctx, s)
		So(errors.Is(err, estimator.ErrInvalidRange), ShouldBeTrue)

		_, err = estimator.New(estimator.WithScoreMode("rmse")).Estimate(ctx, s)
		So(errors.Is(err, estimator.ErrInvalidScoreMode), ShouldBeTrue)

		_, err = estimator.New(estimator.WithSkipRows(-1)).Estimate(ctx, s)
		So(errors.Is(err, estimator.ErrInvalidSkipRows), ShouldBeTrue)

		_, err = estimator.New(
			estimator.WithRange(model.CandidateRange{Min: 0, Max: 100, Step: 0.01}),
			estimator.WithMaxCandidates(100),
		).Estimate(ctx, s)
		So(errors.Is(err, estimator.ErrTooManyCandidates), ShouldBeTrue)
	})

	Convey("Given grids whose size does not fit an int", t, func() {
		ctx := context.Background()
		for _, rng := range []model.CandidateRange{
			{Min: 0, Max: 1e300, Step: 1e-10},
			{Min: -math.MaxFloat64, Max: math.MaxFloat64, Step: 1},
		} {
			e := estimator.New(estimator.WithRange(rng), estimator.WithMaxCandidates(math.MaxInt))
			So(errors.Is(e.Validate(), estimator.ErrTooManyCandidates), ShouldBeTrue)

			var err error
			So(func() { _, err = e.Estimate(ctx, fiveDaySeries()) }, ShouldNotPanic)
			So(errors.Is(err, estimator.ErrTooManyCandidates), ShouldBeTrue)
		}
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := estimator.New().Estimate(ctx, fiveDaySeries())
		So(errors.Is(err, context.Canceled), ShouldBeTrue)

		_, err = estimator.New(estimator.WithWorkers(4)).Estimate(ctx, fiveDaySeries())
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
