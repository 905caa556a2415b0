package s2e

import (
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/soniakeys/meeus/v3/julian"
)

// Propagator is anything the scenario moves forward at every tick.
type Propagator interface {
	Propagate(endTime, currentJD float64) error
}

// PropagatedReference is a reference spacecraft the scenario propagates itself.
type PropagatedReference interface {
	ReferenceSpacecraft
	Propagator
}

// Scenario propagates reference spacecraft then relative orbits at a fixed tick.
// Relative orbits are propagated in the order they were added, so that a relative orbit
// registered as a reference is up to date before the orbits relative to it.
type Scenario struct {
	epoch     time.Time
	tick      time.Duration
	ticks     int64
	info      *RelativeInformation
	refs      []PropagatedReference
	relatives []*RelativeOrbit
	metrics   *Metrics
	logger    kitlog.Logger
}

// NewScenario returns an empty scenario starting at epoch.
func NewScenario(epoch time.Time, tick time.Duration, logger kitlog.Logger) (*Scenario, error) {
	if tick <= 0 {
		return nil, &ConfigurationError{"tick", tick, "must be positive"}
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Scenario{epoch: epoch, tick: tick, info: NewRelativeInformation(), logger: logger}, nil
}

// NewScenarioFromConfig returns the scenario of conf, with its Keplerian reference and
// its relative orbits. m may be nil.
func NewScenarioFromConfig(conf ScenarioConfig, m *Metrics, logger kitlog.Logger) (*Scenario, error) {
	s, err := NewScenario(conf.Epoch, conf.Tick, logger)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	ref, err := conf.Reference.NewReference()
	if err != nil {
		return nil, err
	}
	if err := s.AddReference(conf.Reference.ID, ref); err != nil {
		return nil, err
	}
	for _, rel := range conf.Relatives {
		if _, err := s.AddRelativeOrbit(rel.Name, rel.RelativeOrbitConfig); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddReference registers ref under id and propagates it at every tick.
func (s *Scenario) AddReference(id int, ref PropagatedReference) error {
	if err := s.info.Register(id, ref); err != nil {
		return err
	}
	s.refs = append(s.refs, ref)
	return nil
}

// AddRelativeOrbit creates a relative orbit and propagates it at every tick. Its reference
// must already be registered.
func (s *Scenario) AddRelativeOrbit(name string, conf RelativeOrbitConfig) (*RelativeOrbit, error) {
	for _, ro := range s.relatives {
		if ro.Name() == name {
			return nil, &ConfigurationError{"relative orbit", name, "name already used"}
		}
	}
	ro, err := NewRelativeOrbit(name, conf, s.info, s.logger)
	if err != nil {
		return nil, err
	}
	ro.SetMetrics(s.metrics)
	s.relatives = append(s.relatives, ro)
	return ro, nil
}

// Information returns the reference registry of the scenario.
func (s *Scenario) Information() *RelativeInformation { return s.info }

// Relatives returns the relative orbits in propagation order.
func (s *Scenario) Relatives() []*RelativeOrbit { return s.relatives }

// Elapsed returns the simulated time since the epoch.
func (s *Scenario) Elapsed() time.Duration { return time.Duration(s.ticks) * s.tick }

// Time returns the current simulated date.
func (s *Scenario) Time() time.Time { return s.epoch.Add(s.Elapsed()) }

// JD returns the Julian date of the current simulated date.
func (s *Scenario) JD() float64 { return julian.TimeToJD(s.Time()) }

// Step advances the scenario by one tick.
func (s *Scenario) Step() error {
	s.ticks++
	endTime := s.Elapsed().Seconds()
	jd := s.JD()
	for i, ref := range s.refs {
		if err := ref.Propagate(endTime, jd); err != nil {
			return fmt.Errorf("reference #%d at t=%f: %w", i, endTime, err)
		}
	}
	for _, ro := range s.relatives {
		if err := ro.Propagate(endTime, jd); err != nil {
			return err
		}
	}
	s.logger.Log("level", "debug", "subsys", "scenario", "t", endTime, "jd", jd)
	return nil
}

// Run steps the scenario until duration has elapsed, calling each after every tick if it
// is not nil.
func (s *Scenario) Run(duration time.Duration, each func(*Scenario) error) error {
	s.logger.Log("level", "info", "subsys", "scenario", "status", "starting", "epoch", s.epoch.Format(dateTimeFormat), "duration", duration, "tick", s.tick)
	for s.Elapsed() < duration {
		if err := s.Step(); err != nil {
			s.logger.Log("level", "critical", "subsys", "scenario", "err", err)
			return err
		}
		if each != nil {
			if err := each(s); err != nil {
				return err
			}
		}
	}
	s.logger.Log("level", "info", "subsys", "scenario", "status", "finished", "elapsed", s.Elapsed())
	return nil
}
