package s2e

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the propagation collectors. A nil *Metrics records nothing.
type Metrics struct {
	propagations    *prometheus.CounterVec
	integrationStep *prometheus.CounterVec
	duration        prometheus.Histogram
	distance        *prometheus.GaugeVec
}

// NewMetrics creates the propagation collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		propagations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s2e_relative_orbit_propagations_total",
				Help: "Total number of relative orbit propagations.",
			},
			[]string{"orbit", "mode"},
		),
		integrationStep: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s2e_integration_steps_total",
				Help: "Total number of numerical integration steps.",
			},
			[]string{"orbit", "method"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "s2e_relative_orbit_propagate_seconds",
				Help:    "Wall clock duration of relative orbit propagations in seconds.",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		distance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "s2e_relative_orbit_distance_meters",
				Help: "Distance to the reference spacecraft.",
			},
			[]string{"orbit"},
		),
	}
	for _, c := range []prometheus.Collector{m.propagations, m.integrationStep, m.duration, m.distance} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observePropagation(orbit string, mode UpdateMethod, method string, steps uint64, seconds, distance float64) {
	if m == nil {
		return
	}
	m.propagations.WithLabelValues(orbit, mode.String()).Inc()
	if steps > 0 {
		m.integrationStep.WithLabelValues(orbit, method).Add(float64(steps))
	}
	m.duration.Observe(seconds)
	m.distance.WithLabelValues(orbit).Set(distance)
}
