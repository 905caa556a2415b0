package orbit

import (
	"math"

	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// DCMI2LVLH returns the direction cosine matrix from the inertial frame to the LVLH frame
// of the orbit with position R and velocity V. Its rows are the LVLH axes: x radial,
// z along the angular momentum and y completing the triad (along track).
func DCMI2LVLH(R, V md3.Vec) *mat.Dense {
	ex := unit(R)
	ez := unit(cross(R, V))
	ey := cross(ez, ex)
	return mat.NewDense(3, 3, []float64{
		ex.X, ex.Y, ex.Z,
		ey.X, ey.Y, ey.Z,
		ez.X, ez.Y, ez.Z,
	})
}

// QuaternionI2LVLH returns q such that Rotate(q, v) expresses the inertial vector v in
// the LVLH frame of the orbit with position R and velocity V.
func QuaternionI2LVLH(R, V md3.Vec) quat.Number {
	return QuaternionFromDCM(DCMI2LVLH(R, V))
}

// QuaternionFromDCM returns the unit quaternion q for which Rotate(q, v) equals C v.
// Shepperd's method: branch on the largest of the four squared components.
func QuaternionFromDCM(C mat.Matrix) quat.Number {
	c := func(i, j int) float64 { return C.At(i, j) }
	tr := c(0, 0) + c(1, 1) + c(2, 2)
	var q quat.Number
	switch {
	case tr >= c(0, 0) && tr >= c(1, 1) && tr >= c(2, 2):
		s := 2 * math.Sqrt(1+tr)
		q = quat.Number{Real: s / 4, Imag: (c(2, 1) - c(1, 2)) / s, Jmag: (c(0, 2) - c(2, 0)) / s, Kmag: (c(1, 0) - c(0, 1)) / s}
	case c(0, 0) >= c(1, 1) && c(0, 0) >= c(2, 2):
		s := 2 * math.Sqrt(1+c(0, 0)-c(1, 1)-c(2, 2))
		q = quat.Number{Real: (c(2, 1) - c(1, 2)) / s, Imag: s / 4, Jmag: (c(0, 1) + c(1, 0)) / s, Kmag: (c(0, 2) + c(2, 0)) / s}
	case c(1, 1) >= c(2, 2):
		s := 2 * math.Sqrt(1+c(1, 1)-c(0, 0)-c(2, 2))
		q = quat.Number{Real: (c(0, 2) - c(2, 0)) / s, Imag: (c(0, 1) + c(1, 0)) / s, Jmag: s / 4, Kmag: (c(1, 2) + c(2, 1)) / s}
	default:
		s := 2 * math.Sqrt(1+c(2, 2)-c(0, 0)-c(1, 1))
		q = quat.Number{Real: (c(1, 0) - c(0, 1)) / s, Imag: (c(0, 2) + c(2, 0)) / s, Jmag: (c(1, 2) + c(2, 1)) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// Rotate returns q v q*, i.e. v expressed in the frame q transforms into.
func Rotate(q quat.Number, v md3.Vec) md3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return md3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}
