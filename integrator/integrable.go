package integrator

import (
	"errors"
	"fmt"
)

// Func is the right hand side of dx/dt = f(t, x): it must write the derivative
// of state at t into derivative, which has the same length as state.
// WARNING: f is evaluated several times per step with trial states, so it must be a
// deterministic function of (t, state) without side effects. This is not checked.
type Func func(t float64, state, derivative []float64)

// Integrator advances a fixed dimension state vector in its independent variable.
type Integrator interface {
	Setup(t0 float64, x0 []float64) error // Set the independent variable and state.
	SetStepWidth(h float64) error         // Change the nominal step width.
	Integrate()                           // Advance by one nominal step.
	StepTo(t float64) error               // Advance by one step landing exactly on t.
	GetState() []float64                  // Copy of the current state.
	GetIndependentVariable() float64
	GetStepWidth() float64
	Dimension() int
	Steps() uint64 // Number of steps performed since the last Setup.
}

// Interpolator is implemented by integrators with dense output over their last step.
type Interpolator interface {
	CalcInterpolationState(σ float64) ([]float64, error)
}

var (
	// ErrDimension is returned when a state does not match the integrator dimension.
	ErrDimension = errors.New("state dimension mismatch")
	// ErrInvalidStepWidth is returned for non positive or non finite step widths.
	ErrInvalidStepWidth = errors.New("step width must be positive and finite")
	// ErrBackwardStep is returned when asked to step to an earlier independent variable.
	ErrBackwardStep = errors.New("cannot step backward")
	// ErrNoStep is returned when dense output is requested before any step.
	ErrNoStep = errors.New("no step has been performed")
	// ErrInterpolationRange is returned when σ is outside of [0, 1].
	ErrInterpolationRange = errors.New("interpolation point must be within [0, 1]")
	// ErrInterpolationUnsupported is returned by methods without dense output.
	ErrInterpolationUnsupported = errors.New("integration method does not support interpolation")
	// ErrInvalidTableau is returned when a Butcher tableau is inconsistent.
	ErrInvalidTableau = errors.New("invalid Butcher tableau")
)

// ConfigError describes an integrator which cannot be built as requested.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("integrator: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}
