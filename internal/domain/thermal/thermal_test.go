package thermal_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/thermal"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleSeries() model.Series {
	d0 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	tmin := []float64{10, 12, 14, 16, 18, 3, -2}
	tmax := []float64{20, 22, 24, 26, 28, 9, 4}
	s := make(model.Series, len(tmin))
	for i := range tmin {
		s[i] = model.Observation{Date: d0.AddDate(0, 0, i), TMin: tmin[i], TMax: tmax[i]}
	}
	return s
}

func TestDailySum(t *testing.T) {
	Convey("Given daily means around a basal temperature", t, func() {
		So(thermal.DailySum(15, 10), ShouldEqual, 5)
		So(thermal.DailySum(8, 10), ShouldEqual, 0)
		So(thermal.DailySum(10, 10), ShouldEqual, 0)
		So(thermal.DailySum(math.NaN(), 0), ShouldEqual, 0)
	})

	Convey("Given the mean of min and max", t, func() {
		So(thermal.MeanTemperature(10, 20), ShouldEqual, 15)
		So(thermal.MeanTemperature(-4, 2), ShouldEqual, -1)
	})
}

func TestThermalProperties(t *testing.T) {
	Convey("Given a series and a grid of Tb values", t, func() {
		s := sampleSeries()
		tmed := thermal.MeanTemperatures(s)
		grid := model.CandidateRange{Min: 0, Max: 20, Step: 0.5}.Values()

		Convey("Then STd is never negative", func() {
			for _, tb := range grid {
				for _, m := range tmed {
					So(thermal.DailySum(m, tb), ShouldBeGreaterThanOrEqualTo, 0)
				}
			}
		})

		Convey("Then STa never decreases along the series", func() {
			for _, tb := range grid {
				sta := thermal.AccumulatedFromMeans(tmed, tb)
				for i := 1; i < len(sta); i++ {
					So(sta[i], ShouldBeGreaterThanOrEqualTo, sta[i-1])
				}
			}
		})

		Convey("Then raising Tb never raises STd or STa", func() {
			for k := 1; k < len(grid); k++ {
				lo := thermal.AccumulatedFromMeans(tmed, grid[k-1])
				hi := thermal.AccumulatedFromMeans(tmed, grid[k])
				for i := range tmed {
					So(thermal.DailySum(tmed[i], grid[k]), ShouldBeLessThanOrEqualTo, thermal.DailySum(tmed[i], grid[k-1]))
					So(hi[i], ShouldBeLessThanOrEqualTo, lo[i])
				}
			}
		})
	})
}

func TestProfile(t *testing.T) {
	Convey("Given a profile at Tb=5", t, func() {
		days := thermal.Profile(sampleSeries(), 5)

		Convey("Then it matches the accumulated helpers", func() {
			So(days, ShouldHaveLength, 7)
			So(days[0].TMed, ShouldEqual, 15)
			So(days[0].STd, ShouldEqual, 10)
			So(days[1].STa, ShouldEqual, 22)
			So(days[5].STd, ShouldEqual, 1)
			So(days[6].STd, ShouldEqual, 0)
			So(days[6].STa, ShouldEqual, days[5].STa)

			std := make([]float64, len(days))
			for i, d := range days {
				std[i] = d.STd
			}
			So(thermal.Accumulate(std), ShouldResemble, thermal.AccumulatedFromMeans(thermal.MeanTemperatures(sampleSeries()), 5))
		})
	})
}
