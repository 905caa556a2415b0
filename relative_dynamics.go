package s2e

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// minReferenceRadius bounds the reference orbit radius below which the relative dynamics are undefined.
const minReferenceRadius = 1e-6

// UpdateMethod defines how a relative orbit is propagated.
type UpdateMethod uint8

const (
	// UpdateStepwise integrates the linearized dynamics numerically.
	UpdateStepwise UpdateMethod = iota + 1
	// UpdateClosedForm evaluates the state transition matrix from the epoch.
	UpdateClosedForm
)

func (m UpdateMethod) String() string {
	switch m {
	case UpdateStepwise:
		return "rk"
	case UpdateClosedForm:
		return "stm"
	default:
		panic(fmt.Errorf("unknown update method %d", uint8(m)))
	}
}

// UpdateMethodFromString returns the update method from its name.
func UpdateMethodFromString(s string) (UpdateMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rk", "stepwise":
		return UpdateStepwise, nil
	case "stm", "closed-form":
		return UpdateClosedForm, nil
	default:
		return 0, &ConfigurationError{"update method", s, "expected rk or stm"}
	}
}

// DynamicsModel selects the linearized relative dynamics.
type DynamicsModel uint8

const (
	// Hill is Hill's linearization about a circular reference orbit.
	Hill DynamicsModel = iota + 1
)

func (m DynamicsModel) String() string {
	switch m {
	case Hill:
		return "hill"
	default:
		panic(fmt.Errorf("unknown relative dynamics model %d", uint8(m)))
	}
}

// DynamicsModelFromString returns the dynamics model from its name.
func DynamicsModelFromString(s string) (DynamicsModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hill":
		return Hill, nil
	default:
		return 0, &ConfigurationError{"dynamics model", s, "expected hill"}
	}
}

// STMModel selects how the state transition matrix is computed.
type STMModel uint8

const (
	// HCW is the closed form Hill-Clohessy-Wiltshire solution.
	HCW STMModel = iota + 1
	// MatrixExponential is exp(A t) of the system matrix of the dynamics model.
	MatrixExponential
)

func (m STMModel) String() string {
	switch m {
	case HCW:
		return "hcw"
	case MatrixExponential:
		return "expm"
	default:
		panic(fmt.Errorf("unknown STM model %d", uint8(m)))
	}
}

// STMModelFromString returns the STM model from its name.
func STMModelFromString(s string) (STMModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hcw":
		return HCW, nil
	case "expm":
		return MatrixExponential, nil
	default:
		return 0, &ConfigurationError{"STM model", s, "expected hcw or expm"}
	}
}

// MeanMotion returns the mean motion of a circular orbit of radius r.
func MeanMotion(r, μ float64) (float64, error) {
	if !(μ > 0) || math.IsInf(μ, 1) {
		return 0, &NumericalDegeneracyError{"gravitational parameter", μ}
	}
	if !(r > minReferenceRadius) || math.IsInf(r, 1) {
		return 0, &NumericalDegeneracyError{"reference orbit radius", r}
	}
	return math.Sqrt(μ / (r * r * r)), nil
}

// HillSystemMatrix returns A such that d/dt [x y z vx vy vz] = A [x y z vx vy vz] in the LVLH
// frame of a circular orbit of radius r (x radial, y along track, z cross track).
func HillSystemMatrix(r, μ float64) (*mat.Dense, error) {
	n, err := MeanMotion(r, μ)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(6, 6, []float64{
		0, 0, 0, 1, 0, 0,
		0, 0, 0, 0, 1, 0,
		0, 0, 0, 0, 0, 1,
		3 * n * n, 0, 0, 0, 2 * n, 0,
		0, 0, 0, -2 * n, 0, 0,
		0, 0, -n * n, 0, 0, 0,
	}), nil
}

// HCWStateTransitionMatrix returns the Hill-Clohessy-Wiltshire STM after t seconds.
func HCWStateTransitionMatrix(r, μ, t float64) (*mat.Dense, error) {
	n, err := MeanMotion(r, μ)
	if err != nil {
		return nil, err
	}
	nt := n * t
	s, c := math.Sincos(nt)
	return mat.NewDense(6, 6, []float64{
		4 - 3*c, 0, 0, s / n, 2 / n * (1 - c), 0,
		6 * (s - nt), 1, 0, -2 / n * (1 - c), (4*s - 3*nt) / n, 0,
		0, 0, c, 0, 0, s / n,
		3 * n * s, 0, 0, c, 2 * s, 0,
		-6 * n * (1 - c), 0, 0, -2 * s, 4*c - 3, 0,
		0, 0, -n * s, 0, 0, c,
	}), nil
}

// ExponentialStateTransitionMatrix returns exp(A t).
func ExponentialStateTransitionMatrix(A mat.Matrix, t float64) *mat.Dense {
	var At, φ mat.Dense
	At.Scale(t, A)
	φ.Exp(&At)
	return &φ
}

// SystemMatrix returns the system matrix of the requested dynamics model.
func SystemMatrix(model DynamicsModel, r, μ float64) (*mat.Dense, error) {
	switch model {
	case Hill:
		return HillSystemMatrix(r, μ)
	default:
		return nil, &ConfigurationError{"dynamics model", uint8(model), "not implemented"}
	}
}

// StateTransitionMatrix returns the STM after t seconds for the dynamics model.
func StateTransitionMatrix(stm STMModel, model DynamicsModel, r, μ, t float64) (*mat.Dense, error) {
	switch stm {
	case HCW:
		if model != Hill {
			return nil, &ConfigurationError{"STM model", stm, fmt.Sprintf("only defined for the hill dynamics model, not %d", uint8(model))}
		}
		return HCWStateTransitionMatrix(r, μ, t)
	case MatrixExponential:
		A, err := SystemMatrix(model, r, μ)
		if err != nil {
			return nil, err
		}
		return ExponentialStateTransitionMatrix(A, t), nil
	default:
		return nil, &ConfigurationError{"STM model", uint8(stm), "not implemented"}
	}
}
