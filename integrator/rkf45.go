package integrator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// EmbeddedTableau is a Tableau with a second, lower order set of weights sharing the
// same stages. The higher order Weights propagate the state.
// Dense, if set, defines the continuous extension b_i(σ) = σ w_i + σ(1-σ) Σ_k σ^k Dense[k][i].
type EmbeddedTableau struct {
	Tableau
	LowerOrder   int
	LowerWeights []float64
	Dense        [][]float64
}

// Validate checks both sets of weights and the shape of the continuous extension.
func (tab EmbeddedTableau) Validate() error {
	if err := tab.Tableau.Validate(); err != nil {
		return err
	}
	if len(tab.LowerWeights) != tab.Stages() {
		return fmt.Errorf("%w: %s has %d lower order weights", ErrInvalidTableau, tab.Name, len(tab.LowerWeights))
	}
	if !scalar.EqualWithinAbs(floats.Sum(tab.LowerWeights), 1, tableauε) {
		return fmt.Errorf("%w: %s lower order weights sum to %f", ErrInvalidTableau, tab.Name, floats.Sum(tab.LowerWeights))
	}
	for k, row := range tab.Dense {
		if len(row) != tab.Stages() {
			return fmt.Errorf("%w: %s dense output row %d has %d coefficients", ErrInvalidTableau, tab.Name, k, len(row))
		}
	}
	return nil
}

// RKF45Tableau is the Runge-Kutta-Fehlberg 4(5) pair with a continuous extension.
// The second stage does not have stage order two, so the extension leaves it out and
// is third order in general. It also satisfies the fourth order condition of linear
// problems and the fifth order quadrature condition.
var RKF45Tableau = EmbeddedTableau{
	Tableau: Tableau{
		Name:  "RKF45",
		Order: 5,
		Nodes: []float64{0, 1 / 4.0, 3 / 8.0, 12 / 13.0, 1, half},
		Coupling: [][]float64{
			{},
			{1 / 4.0},
			{3 / 32.0, 9 / 32.0},
			{1932 / 2197.0, -7200 / 2197.0, 7296 / 2197.0},
			{439 / 216.0, -8, 3680 / 513.0, -845 / 4104.0},
			{-8 / 27.0, 2, -3544 / 2565.0, 1859 / 4104.0, -11 / 40.0},
		},
		Weights: []float64{16 / 135.0, 0, 6656 / 12825.0, 28561 / 56430.0, -9 / 50.0, 2 / 55.0},
	},
	LowerOrder:   4,
	LowerWeights: []float64{25 / 216.0, 0, 1408 / 2565.0, 2197 / 4104.0, -1 / 5.0, 0},
	Dense: [][]float64{
		{119 / 135.0, 0, -6656 / 12825.0, -28561 / 56430.0, 9 / 50.0, -2 / 55.0},
		{-3803 / 17280.0, 0, -94496 / 12825.0, -39100009 / 3611520.0, 5679 / 800.0, 4979 / 440.0},
		{-5201 / 5760.0, 0, 2272 / 225.0, 656903 / 63360.0, -5721 / 800.0, -5461 / 440.0},
		{-52 / 45.0, 0, 53248 / 4275.0, 114244 / 9405.0, -208 / 25.0, -832 / 55.0},
	},
}

// denseWeights sets dst to the weights b_i(σ) of the continuous extension.
func denseWeights(dst, weights []float64, dense [][]float64, σ float64) {
	for i, w := range weights {
		u := 0.0
		for k := len(dense) - 1; k >= 0; k-- {
			u = u*σ + dense[k][i]
		}
		dst[i] = σ*w + σ*(1-σ)*u
	}
}

// EmbeddedRungeKutta is a fixed step embedded method. It exposes the local truncation
// error estimate and a dense output over the last step, but never rejects a step.
type EmbeddedRungeKutta struct {
	*RungeKutta
	lowerWeights []float64
	dense        [][]float64
	interp       []float64
}

// NewEmbeddedRungeKutta returns an integrator for any embedded tableau.
func NewEmbeddedRungeKutta(tab EmbeddedTableau, stepWidth float64, dim int, f Func) (*EmbeddedRungeKutta, error) {
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	rk, err := newRungeKutta(tab.Tableau, stepWidth, dim, f)
	if err != nil {
		return nil, err
	}
	e := &EmbeddedRungeKutta{RungeKutta: rk, lowerWeights: tab.LowerWeights, dense: tab.Dense}
	e.interp = make([]float64, tab.Stages())
	return e, nil
}

// NewRKF45 returns a new Runge-Kutta-Fehlberg integrator.
func NewRKF45(stepWidth float64, dim int, f Func) (*EmbeddedRungeKutta, error) {
	return NewEmbeddedRungeKutta(RKF45Tableau, stepWidth, dim, f)
}

// LocalTruncationError returns the difference between the higher and lower order
// solutions of the last step, or nil before the first step.
func (e *EmbeddedRungeKutta) LocalTruncationError() []float64 {
	if e.lastH == 0 {
		return nil
	}
	diff := make([]float64, len(e.tableau.Weights))
	floats.SubTo(diff, e.tableau.Weights, e.lowerWeights)
	zero := make([]float64, e.Dimension())
	errEst := make([]float64, e.Dimension())
	combine(errEst, zero, e.lastH, diff, e.slopes)
	return errEst
}

// CalcInterpolationState returns the state at t_prev + σ h of the last step, with σ in
// [0, 1], without evaluating the derivative. σ=0 returns the state before the step and
// σ=1 the state after it, bit for bit.
func (e *EmbeddedRungeKutta) CalcInterpolationState(σ float64) ([]float64, error) {
	if len(e.dense) == 0 {
		return nil, ErrInterpolationUnsupported
	}
	if e.lastH == 0 {
		return nil, ErrNoStep
	}
	if !(σ >= 0 && σ <= 1) {
		return nil, fmt.Errorf("%w: σ=%f", ErrInterpolationRange, σ)
	}
	denseWeights(e.interp, e.tableau.Weights, e.dense, σ)
	state := make([]float64, e.Dimension())
	combine(state, e.prevState, e.lastH, e.interp, e.slopes)
	return state, nil
}

// PreviousIndependentVariable returns the independent variable at the start of the last step.
func (e *EmbeddedRungeKutta) PreviousIndependentVariable() float64 {
	return e.prevT
}
