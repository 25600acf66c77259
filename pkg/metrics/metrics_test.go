package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// value returns the first sample of the named family: counter value or
// histogram sample count. ok is false when the family is absent.
func value(reg *prometheus.Registry, name string, labels map[string]string) (float64, bool) {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount()), true
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue(), true
			}
			return m.GetCounter().GetValue(), true
		}
	}
	return 0, false
}

func TestManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg), WithCustomLabels(map[string]string{"env": "test"}))

		Convey("When an analysis is recorded", func() {
			m.RecordAnalysis(OutcomeOK)
			m.RecordAnalysis(OutcomeOK)
			m.RecordAnalysis(OutcomeFatal)
			m.RecordCandidates(41, 3)
			m.RecordValidationMessage("leaf_decrease", "warning")
			m.RecordEstimationLatency(1.5)
			m.RecordSeriesDays(60)

			Convey("Then the counters reflect it", func() {
				v, ok := value(reg, "estimatb_estimator_analyses_total", map[string]string{"outcome": "ok"})
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)
				v, _ = value(reg, "estimatb_estimator_analyses_total", map[string]string{"outcome": "fatal"})
				So(v, ShouldEqual, 1)
				v, _ = value(reg, "estimatb_estimator_candidates_evaluated_total", nil)
				So(v, ShouldEqual, 41)
				v, _ = value(reg, "estimatb_estimator_candidates_unusable_total", nil)
				So(v, ShouldEqual, 3)
				v, _ = value(reg, "estimatb_estimator_validation_messages_total", map[string]string{"kind": "leaf_decrease"})
				So(v, ShouldEqual, 1)
				v, _ = value(reg, "estimatb_estimator_estimation_latency_milliseconds", nil)
				So(v, ShouldEqual, 1)
			})

			Convey("And constant labels are attached", func() {
				v, ok := value(reg, "estimatb_estimator_series_days", map[string]string{"env": "test"})
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When HTTP traffic and system stats are recorded", func() {
			m.RecordHTTPRequest("/estimate", "POST", "200", 12)
			m.RecordUploadBytes(2048)
			m.RecordErrorByComponent("api", "bad_request")
			m.UpdateSystem(1<<20, 7, 0)

			v, _ := value(reg, "estimatb_estimator_http_requests_total", map[string]string{"endpoint": "/estimate"})
			So(v, ShouldEqual, 1)
			v, _ = value(reg, "estimatb_estimator_http_request_duration_milliseconds", nil)
			So(v, ShouldEqual, 1)
			v, _ = value(reg, "estimatb_estimator_system_goroutine_count", nil)
			So(v, ShouldEqual, 7)
			v, _ = value(reg, "estimatb_estimator_system_gc_pause_time_milliseconds", nil)
			So(v, ShouldEqual, 0)
		})
	})

	Convey("Given a disabled manager", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg), WithMetricsEnabled(false), WithNamespace("off"), WithSubsystem("x"))
		m.RecordAnalysis(OutcomeOK)
		m.RecordCandidates(10, 1)

		v, _ := value(reg, "off_x_candidates_evaluated_total", nil)
		So(v, ShouldEqual, 0)
		_, ok := value(reg, "off_x_analyses_total", nil)
		So(ok, ShouldBeFalse)
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Global helpers record on the custom registry", t, func() {
		So(func() {
			RecordAnalysis(OutcomeNoFit)
			RecordCandidates(1, 1)
			RecordValidationMessage("schema", "fatal")
			RecordEstimationLatency(0.1)
			RecordSeriesDays(3)
			RecordHTTPRequest("/stats", "GET", "200", 0.2)
			RecordUploadBytes(10)
			RecordErrorByComponent("app", "estimate")
			UpdateSystem(1, 1, 0.5)
		}, ShouldNotPanic)

		v, ok := value(GetRegistry(), "estimatb_estimator_analyses_total", map[string]string{"outcome": OutcomeNoFit})
		So(ok, ShouldBeTrue)
		So(v, ShouldBeGreaterThanOrEqualTo, 1)
	})
}
