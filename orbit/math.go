package orbit

import (
	"math"

	"github.com/soypat/geometry/md3"
)

const deg2rad = math.Pi / 180

// Below these, orbits are treated as circular or degenerate.
const (
	eccentricityε    = 1e-11
	angularMomentumε = 1e-12
)

// Deg2rad converts degrees to radians. Negative angles are shifted up by one turn
// and the result wraps at 2π.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg is the inverse of Deg2rad and wraps at 360°.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// dot performs the inner product.
func dot(a, b md3.Vec) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// cross performs the cross product.
func cross(a, b md3.Vec) md3.Vec {
	return md3.Vec{X: a.Y*b.Z - a.Z*b.Y, Y: a.Z*b.X - a.X*b.Z, Z: a.X*b.Y - a.Y*b.X}
}

// unit returns the unit vector of a given vector, or the zero vector.
func unit(a md3.Vec) md3.Vec {
	n := md3.Norm(a)
	if n == 0 {
		return md3.Vec{}
	}
	return md3.Scale(1/n, a)
}
