package integrator

import (
	"fmt"
	"math"
)

// ArrivalTolerance is the slack under which a nominal step is considered to overshoot the end.
const ArrivalTolerance = 1e-6

// StepPlan splits [Start, End] in Full nominal steps followed by one last step of width Last
// which lands exactly on End. Last is in [0, Nominal+tolerance].
type StepPlan struct {
	Start, End float64
	Nominal    float64
	Full       uint64
	Last       float64
}

// NewStepPlan returns the plan to go from start to end with nominal steps.
// Full steps are taken while end - t - nominal > tol.
func NewStepPlan(start, end, nominal, tol float64) (StepPlan, error) {
	if !validStepWidth(nominal) {
		return StepPlan{}, fmt.Errorf("%w: %f", ErrInvalidStepWidth, nominal)
	}
	if math.IsNaN(end) || math.IsInf(end, 0) || end < start {
		return StepPlan{}, fmt.Errorf("%w: from %f to %f", ErrBackwardStep, start, end)
	}
	p := StepPlan{Start: start, End: end, Nominal: nominal}
	t := start
	for end-t-nominal > tol {
		t += nominal
		p.Full++
	}
	p.Last = end - t
	return p, nil
}

// Steps returns the number of integration steps the plan performs.
func (p StepPlan) Steps() uint64 {
	if p.Last > 0 {
		return p.Full + 1
	}
	return p.Full
}

// Run drives ig through the plan. The integrator must be at Start and use Nominal as its
// step width. Its independent variable is End on success.
func (p StepPlan) Run(ig Integrator) error {
	if ig.GetIndependentVariable() != p.Start || ig.GetStepWidth() != p.Nominal {
		return fmt.Errorf("plan from %f with step %f does not match integrator at %f with step %f", p.Start, p.Nominal, ig.GetIndependentVariable(), ig.GetStepWidth())
	}
	for i := uint64(0); i < p.Full; i++ {
		ig.Integrate()
	}
	return ig.StepTo(p.End)
}
