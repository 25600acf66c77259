package service_test

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/okian/estimatb/internal/adapters/table"
	service "github.com/okian/estimatb/internal/app"
	"github.com/okian/estimatb/internal/domain/model"
	"github.com/okian/estimatb/internal/domain/thermal"
	. "github.com/smartystreets/goconvey/convey"
)

// synthetic builds days of weather with leaf counts every third day that
// are an exact linear function of STa at trueTb.
func synthetic(trueTb float64, days int) model.Series {
	s := make(model.Series, days)
	for i := range s {
		tmed := 16 + 6*math.Sin(float64(i)/4)
		s[i] = model.Observation{TMin: tmed - 4, TMax: tmed + 4}
	}
	for _, d := range thermal.Profile(s, trueTb) {
		if d.Index%3 == 0 {
			s[d.Index].LeafCount = math.Round((0.015*d.STa+1)*1e6) / 1e6
			s[d.Index].HasLeafCount = true
		}
	}
	return s
}

func syntheticCSV(trueTb float64, days int) string {
	var b strings.Builder
	b.WriteString("Data;Tmin;Tmax;NF\n")
	for i, o := range synthetic(trueTb, days) {
		nf := ""
		if o.HasLeafCount {
			nf = strings.Replace(fmt.Sprintf("%.6f", o.LeafCount), ".", ",", 1)
		}
		fmt.Fprintf(&b, "%02d/%02d/2024;%s;%s;%s\n", 1+i%28, 9+i/28,
			strings.Replace(fmt.Sprintf("%.10f", o.TMin), ".", ",", 1),
			strings.Replace(fmt.Sprintf("%.10f", o.TMax), ".", ",", 1),
			nf)
	}
	return b.String()
}

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a semicolon CSV with decimal commas generated at Tb=9", t, func() {
		tb, err := table.ReadCSV(strings.NewReader(syntheticCSV(9, 56)))
		So(err, ShouldBeNil)

		Convey("When analyzed in parallel over the default grid", func() {
			svc := service.New(service.WithWorkers(4))
			a, err := svc.Analyze(context.Background(), tb, service.Request{})

			Convey("Then the generating Tb is recovered", func() {
				So(err, ShouldBeNil)
				So(a.Messages, ShouldBeEmpty)
				So(a.Best().Tb, ShouldEqual, 9)
				So(a.Best().R2, ShouldAlmostEqual, 1, 1e-6)
			})

			Convey("And the CSV writers accept the analysis", func() {
				var res, det bytes.Buffer
				So(table.WriteResults(&res, a.Results, table.WriteOptions{}), ShouldBeNil)
				So(table.WriteDetail(&det, a.Detail, table.WriteOptions{}), ShouldBeNil)
				So(strings.Count(res.String(), "\n"), ShouldEqual, 42)
				So(strings.Count(det.String(), "\n"), ShouldEqual, 57)
			})
		})
	})

	Convey("Given the same data in a workbook on a second sheet", t, func() {
		f := excelize.NewFile()
		_, err := f.NewSheet("Campo")
		So(err, ShouldBeNil)
		for c, h := range []string{"Data", "Tmin", "Tmax", "NF"} {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			So(f.SetCellValue("Campo", cell, h), ShouldBeNil)
		}
		for i, o := range synthetic(9, 56) {
			row := i + 2
			So(f.SetCellValue("Campo", fmt.Sprintf("A%d", row), 45536+i), ShouldBeNil) // 2024-09-01
			So(f.SetCellValue("Campo", fmt.Sprintf("B%d", row), o.TMin), ShouldBeNil)
			So(f.SetCellValue("Campo", fmt.Sprintf("C%d", row), o.TMax), ShouldBeNil)
			if o.HasLeafCount {
				So(f.SetCellValue("Campo", fmt.Sprintf("D%d", row), o.LeafCount), ShouldBeNil)
			}
		}
		buf, err := f.WriteToBuffer()
		So(err, ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		tb, err := table.Read("campo.xlsx", buf, "Campo")
		So(err, ShouldBeNil)

		a, err := service.New().Analyze(context.Background(), tb, service.Request{})
		So(err, ShouldBeNil)
		So(a.Best().Tb, ShouldEqual, 9)
		So(a.Detail[0].Obs.Date.Format("2006-01-02"), ShouldEqual, "2024-09-01")
	})
}
