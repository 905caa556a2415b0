package integrator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const tableauε = 1e-12

// Tableau holds the Butcher coefficients of an explicit Runge-Kutta method.
// Coupling[i] holds the i coefficients a_ij for j < i.
type Tableau struct {
	Name     string
	Order    int
	Nodes    []float64
	Coupling [][]float64
	Weights  []float64
}

// Stages returns the number of stages of this method.
func (tab Tableau) Stages() int {
	return len(tab.Nodes)
}

// Validate checks the consistency conditions every explicit method must satisfy.
func (tab Tableau) Validate() error {
	s := tab.Stages()
	if s == 0 {
		return fmt.Errorf("%w: %s has no stages", ErrInvalidTableau, tab.Name)
	}
	if len(tab.Coupling) != s || len(tab.Weights) != s {
		return fmt.Errorf("%w: %s has %d nodes, %d coupling rows and %d weights", ErrInvalidTableau, tab.Name, s, len(tab.Coupling), len(tab.Weights))
	}
	for i, row := range tab.Coupling {
		if len(row) != i {
			return fmt.Errorf("%w: %s coupling row %d is not strictly lower triangular", ErrInvalidTableau, tab.Name, i)
		}
		if !scalar.EqualWithinAbs(floats.Sum(row), tab.Nodes[i], tableauε) {
			return fmt.Errorf("%w: %s node %d (%f) differs from its coupling row sum", ErrInvalidTableau, tab.Name, i, tab.Nodes[i])
		}
	}
	if !scalar.EqualWithinAbs(floats.Sum(tab.Weights), 1, tableauε) {
		return fmt.Errorf("%w: %s weights sum to %f", ErrInvalidTableau, tab.Name, floats.Sum(tab.Weights))
	}
	return nil
}

// RungeKutta is a fixed step explicit Runge-Kutta integrator driven by a Tableau.
type RungeKutta struct {
	tableau Tableau
	f       Func
	t, h    float64
	state   []float64
	stage   []float64   // trial state buffer
	slopes  [][]float64 // slopes of the last step
	// Kept for dense output.
	prevT, lastH float64
	prevState    []float64
	steps        uint64
}

func newRungeKutta(tab Tableau, stepWidth float64, dim int, f Func) (*RungeKutta, error) {
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	if dim <= 0 {
		return nil, &ConfigError{"dimension", dim, "must be positive"}
	}
	if f == nil {
		return nil, &ConfigError{"derivative", nil, "may not be nil"}
	}
	if !validStepWidth(stepWidth) {
		return nil, &ConfigError{"step width", stepWidth, ErrInvalidStepWidth.Error()}
	}
	rk := &RungeKutta{tableau: tab, f: f, h: stepWidth}
	rk.state = make([]float64, dim)
	rk.stage = make([]float64, dim)
	rk.prevState = make([]float64, dim)
	rk.slopes = make([][]float64, tab.Stages())
	for i := range rk.slopes {
		rk.slopes[i] = make([]float64, dim)
	}
	return rk, nil
}

func validStepWidth(h float64) bool {
	return h > 0 && !math.IsInf(h, 1)
}

// Tableau returns the coefficients driving this integrator.
func (rk *RungeKutta) Tableau() Tableau {
	return rk.tableau
}

// Setup sets the independent variable and copies x0 as the current state.
func (rk *RungeKutta) Setup(t0 float64, x0 []float64) error {
	if len(x0) != len(rk.state) {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x0), len(rk.state))
	}
	copy(rk.state, x0)
	rk.t = t0
	rk.steps = 0
	rk.lastH = 0
	return nil
}

// SetStepWidth changes the nominal step width.
func (rk *RungeKutta) SetStepWidth(h float64) error {
	if !validStepWidth(h) {
		return fmt.Errorf("%w: %f", ErrInvalidStepWidth, h)
	}
	rk.h = h
	return nil
}

// Integrate advances the state by one nominal step.
func (rk *RungeKutta) Integrate() {
	rk.step(rk.h)
}

// StepTo performs a single step of width t minus the current independent variable,
// and sets the independent variable to exactly t. The nominal width is unchanged.
func (rk *RungeKutta) StepTo(t float64) error {
	h := t - rk.t
	if h < 0 || math.IsNaN(h) {
		return fmt.Errorf("%w: from %f to %f", ErrBackwardStep, rk.t, t)
	}
	if h > 0 {
		rk.step(h)
	}
	rk.t = t
	return nil
}

// GetState returns a copy of the current state.
func (rk *RungeKutta) GetState() []float64 {
	s := make([]float64, len(rk.state))
	copy(s, rk.state)
	return s
}

// GetIndependentVariable returns the current independent variable.
func (rk *RungeKutta) GetIndependentVariable() float64 {
	return rk.t
}

// GetStepWidth returns the nominal step width.
func (rk *RungeKutta) GetStepWidth() float64 {
	return rk.h
}

// Dimension returns the state dimension.
func (rk *RungeKutta) Dimension() int {
	return len(rk.state)
}

// Steps returns the number of steps since the last Setup.
func (rk *RungeKutta) Steps() uint64 {
	return rk.steps
}

func (rk *RungeKutta) step(h float64) {
	rk.calcSlopes(h)
	copy(rk.prevState, rk.state)
	rk.prevT = rk.t
	rk.lastH = h
	combine(rk.state, rk.prevState, h, rk.tableau.Weights, rk.slopes)
	rk.t += h
	rk.steps++
}

// calcSlopes computes slope_i = f(t + c_i h, x + h Σ_j a_ij slope_j).
func (rk *RungeKutta) calcSlopes(h float64) {
	for i, row := range rk.tableau.Coupling {
		combine(rk.stage, rk.state, h, row, rk.slopes)
		for j := range rk.slopes[i] {
			rk.slopes[i][j] = 0
		}
		rk.f(rk.t+rk.tableau.Nodes[i]*h, rk.stage, rk.slopes[i])
	}
}

// combine sets dst = x0 + h Σ coeffs_i slopes_i. Step updates and dense output share it so
// that both produce identical values for identical coefficients.
func combine(dst, x0 []float64, h float64, coeffs []float64, slopes [][]float64) {
	copy(dst, x0)
	for i, c := range coeffs {
		if c != 0 {
			floats.AddScaled(dst, h*c, slopes[i])
		}
	}
}
