package s2e

import (
	"testing"

	"github.com/HiroyukiBando/s2e-core/integrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatal("collectors registered twice")
	}

	ro := newChaser(t, circularReference(), chaserConfig(UpdateStepwise, integrator.RKF45, 1))
	ro.SetMetrics(m)
	closed := newChaser(t, circularReference(), chaserConfig(UpdateClosedForm, 0, 0))
	closed.SetMetrics(m)
	for _, endTime := range []float64{10, 25.5} {
		if err := ro.Propagate(endTime, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := closed.Propagate(10, 0); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.propagations.WithLabelValues("chaser", "rk")); got != 2 {
		t.Fatalf("%f stepwise propagations", got)
	}
	if got := testutil.ToFloat64(m.propagations.WithLabelValues("chaser", "stm")); got != 1 {
		t.Fatalf("%f closed form propagations", got)
	}
	// 10 steps to t=10, then 15 full steps and a partial one.
	if got := testutil.ToFloat64(m.integrationStep.WithLabelValues("chaser", "rkf45")); got != 26 {
		t.Fatalf("%f integration steps", got)
	}
	if got := testutil.ToFloat64(m.distance.WithLabelValues("chaser")); !scalar.EqualWithinAbs(got, md3.Norm(closed.RelativePositionLVLH()), 1e-12) {
		t.Fatalf("distance %f", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Fatalf("%d duration histograms", got)
	}

	// Without metrics nothing is recorded.
	var none *Metrics
	none.observePropagation("chaser", UpdateStepwise, "rk4", 1, 0, 0)
}
