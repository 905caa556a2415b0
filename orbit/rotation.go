package orbit

import (
	"math"

	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/mat"
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a 3x3 matrix with a vector.
func MxV33(m mat.Matrix, v md3.Vec) md3.Vec {
	var r mat.VecDense
	r.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return md3.Vec{X: r.AtVec(0), Y: r.AtVec(1), Z: r.AtVec(2)}
}

// PQW2ECI returns the DCM from the perifocal frame to the inertial frame (all angles in radians).
func PQW2ECI(i, ω, Ω float64) *mat.Dense {
	var tmp, m mat.Dense
	tmp.Mul(R3(-Ω), R1(-i))
	m.Mul(&tmp, R3(-ω))
	return &m
}
