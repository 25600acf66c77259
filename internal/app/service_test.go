package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/okian/estimatb/internal/app"
	"github.com/okian/estimatb/internal/domain/estimator"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/prepare"
	"github.com/okian/estimatb/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func fiveDayTable() model.Table {
	return model.Table{
		Headers: []string{"Data", "Tmin", "Tmax", "NF"},
		Rows: [][]string{
			{"01/08/2024", "10", "20", ""},
			{"02/08/2024", "12", "22", "2"},
			{"03/08/2024", "14", "24", ""},
			{"04/08/2024", "16", "26", "5"},
			{"05/08/2024", "18", "28", "8"},
		},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["workers"], ShouldEqual, 1)
			So(stats["scoreMode"], ShouldEqual, "mse")
			So(stats["range"], ShouldResemble, model.DefaultRange)
		})
	})

	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkers(4), service.WithLogger(logger.Get()))
		So(svc.Start(context.Background()), ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		stats := svc.GetStats()
		So(stats["started"], ShouldBeTrue)
		So(stats["workers"], ShouldEqual, 4)
		So(stats, ShouldContainKey, "uptimeSeconds")
	})
}

func TestService_Analyze(t *testing.T) {
	Convey("Given a service over a 0..10 step 5 grid", t, func() {
		svc := service.New(service.WithRange(model.CandidateRange{Min: 0, Max: 10, Step: 5}))
		ctx := context.Background()

		Convey("When analyzing the five-day table", func() {
			a, err := svc.Analyze(ctx, fiveDayTable(), service.Request{})

			Convey("Then Tb=10 is selected and interpreted", func() {
				So(err, ShouldBeNil)
				So(a.RunID, ShouldNotBeEmpty)
				So(a.Fatal, ShouldBeFalse)
				So(a.Days, ShouldEqual, 5)
				So(a.Measurements, ShouldEqual, 3)
				So(a.Results.Rows, ShouldHaveLength, 3)
				So(a.Best().Tb, ShouldEqual, 10)
				So(a.Assessment, ShouldNotBeNil)
				So(a.Assessment.Sentences, ShouldHaveLength, 3)
			})

			Convey("And the detail table uses the best Tb", func() {
				So(a.Detail, ShouldHaveLength, 5)
				So(a.Detail[0].STd, ShouldEqual, 5)
				So(a.Detail[4].STa, ShouldEqual, 5+7+9+11+13)
			})

			Convey("And stats count the run", func() {
				stats := svc.GetStats()
				So(stats["analyses"], ShouldEqual, int64(1))
				So(stats["succeeded"], ShouldEqual, int64(1))
				So(stats["lastRunID"], ShouldEqual, a.RunID)
			})
		})

		Convey("When the request overrides the defaults", func() {
			skip := 0
			a, err := svc.Analyze(ctx, fiveDayTable(), service.Request{
				Range:    &model.CandidateRange{Min: 0, Max: 20, Step: 0.5},
				SkipRows: &skip,
				Mode:     model.ScoreR2,
			})
			So(err, ShouldBeNil)
			So(a.Results.Rows, ShouldHaveLength, 41)
			So(a.Results.Mode, ShouldEqual, model.ScoreR2)
		})

		Convey("When the input is fatally broken", func() {
			tb := fiveDayTable()
			tb.Headers = []string{"Date", "Min", "Max", "Leaves"}
			a, err := svc.Analyze(ctx, tb, service.Request{})

			Convey("Then messages come back with ErrInvalidData", func() {
				So(errors.Is(err, service.ErrInvalidData), ShouldBeTrue)
				So(a.Fatal, ShouldBeTrue)
				So(a.Results, ShouldBeNil)
				So(a.Messages[0].Kind, ShouldEqual, model.KindSchema)
				So(svc.GetStats()["fatal"], ShouldEqual, int64(1))
			})
		})

		Convey("When a request resolver is given", func() {
			tb := fiveDayTable()
			tb.Headers = []string{"Dia", "Temp Min", "Temp Max", "Folhas"}
			a, err := svc.Analyze(ctx, tb, service.Request{Resolver: prepare.NewFuzzyResolver()})
			So(err, ShouldBeNil)
			So(a.Best().Tb, ShouldEqual, 10)
		})

		Convey("When no candidate is usable", func() {
			skip := 4
			a, err := svc.Analyze(ctx, fiveDayTable(), service.Request{SkipRows: &skip})

			Convey("Then results are returned with ErrNoUsableFit", func() {
				So(errors.Is(err, estimator.ErrNoUsableFit), ShouldBeTrue)
				So(a.Results, ShouldNotBeNil)
				So(a.Best(), ShouldBeNil)
				So(a.Assessment, ShouldBeNil)
				So(svc.GetStats()["noFit"], ShouldEqual, int64(1))
			})
		})

		Convey("When the request grid is invalid", func() {
			a, err := svc.Analyze(ctx, fiveDayTable(), service.Request{
				Range: &model.CandidateRange{Min: 5, Max: 1, Step: 1},
			})
			So(errors.Is(err, estimator.ErrInvalidRange), ShouldBeTrue)
			So(a, ShouldBeNil)
			So(svc.GetStats()["analyses"], ShouldEqual, int64(0))
		})
	})
}
