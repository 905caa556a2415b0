package orbit

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/num/quat"
)

// ErrUnboundOrbit is returned for parabolic and hyperbolic states.
var ErrUnboundOrbit = errors.New("orbit is not elliptical")

// ErrDegenerateOrbit is returned for states without angular momentum or with non positive μ.
var ErrDegenerateOrbit = errors.New("degenerate orbit")

// Kepler is a two body elliptical orbit propagated analytically from an epoch state.
// Time is counted in seconds from the simulation start.
type Kepler struct {
	μ      float64
	a, e   float64
	p, q   md3.Vec // perifocal unit vectors, p pointing to periapsis
	n      float64 // mean motion
	m0     float64 // mean anomaly at epoch
	epoch  float64
	t      float64
	r, v   md3.Vec
	frames FixedFrames
}

// NewKeplerFromRV returns the Keplerian orbit of the state R, V at the epoch time.
func NewKeplerFromRV(μ float64, R, V md3.Vec, epoch float64) (*Kepler, error) {
	if !(μ > 0) || math.IsInf(μ, 1) {
		return nil, fmt.Errorf("%w: μ=%g", ErrDegenerateOrbit, μ)
	}
	r := md3.Norm(R)
	v := md3.Norm(V)
	hVec := cross(R, V)
	if r == 0 || md3.Norm(hVec) <= angularMomentumε*r*v {
		return nil, fmt.Errorf("%w: rectilinear state R=%v V=%v", ErrDegenerateOrbit, R, V)
	}
	// From Vallado's RV2COE.
	ξ := (v*v)/2 - μ/r
	if ξ >= 0 {
		return nil, fmt.Errorf("%w: specific energy ξ=%g", ErrUnboundOrbit, ξ)
	}
	a := -μ / (2 * ξ)
	eVec := md3.Scale(1/μ, md3.Sub(md3.Scale(v*v-μ/r, R), md3.Scale(dot(R, V), V)))
	e := md3.Norm(eVec)

	k := &Kepler{μ: μ, a: a, e: e, epoch: epoch, t: epoch, r: R, v: V}
	if e < eccentricityε {
		// Circular: measure the anomaly from the epoch position.
		k.e = 0
		k.p = unit(R)
	} else {
		k.p = unit(eVec)
	}
	k.q = unit(cross(unit(hVec), k.p))
	k.n = math.Sqrt(μ / (a * a * a))

	b := a * math.Sqrt(1-k.e*k.e)
	cosE := dot(R, k.p)/a + k.e
	sinE := dot(R, k.q) / b
	E0 := math.Atan2(sinE, cosE)
	k.m0 = E0 - k.e*math.Sin(E0)
	return k, nil
}

// NewKeplerFromElements returns the orbit with the provided classical elements. The
// semi major axis is in the length unit of μ, and angles are in degrees.
func NewKeplerFromElements(μ, a, e, i, Ω, ω, ν, epoch float64) (*Kepler, error) {
	if !(a > 0) || e < 0 || e >= 1 {
		return nil, fmt.Errorf("%w: a=%g e=%g", ErrUnboundOrbit, a, e)
	}
	if !(μ > 0) {
		return nil, fmt.Errorf("%w: μ=%g", ErrDegenerateOrbit, μ)
	}
	p := a * (1 - e*e)
	sinν, cosν := math.Sincos(Deg2rad(ν))
	R := md3.Vec{X: p * cosν / (1 + e*cosν), Y: p * sinν / (1 + e*cosν)}
	V := md3.Vec{X: -math.Sqrt(μ/p) * sinν, Y: math.Sqrt(μ/p) * (e + cosν)}
	dcm := PQW2ECI(Deg2rad(i), Deg2rad(ω), Deg2rad(Ω))
	return NewKeplerFromRV(μ, MxV33(dcm, R), MxV33(dcm, V), epoch)
}

// At returns the position and velocity at time t.
func (k *Kepler) At(t float64) (R, V md3.Vec) {
	E := EccentricAnomalyFromMean(k.m0+k.n*(t-k.epoch), k.e)
	sinE, cosE := math.Sincos(E)
	b := k.a * math.Sqrt(1-k.e*k.e)
	Edot := k.n / (1 - k.e*cosE)
	R = md3.Add(md3.Scale(k.a*(cosE-k.e), k.p), md3.Scale(b*sinE, k.q))
	V = md3.Add(md3.Scale(-k.a*sinE*Edot, k.p), md3.Scale(b*cosE*Edot, k.q))
	return
}

// Propagate moves the orbit to endTime and updates its fixed frame state for currentJD.
// A zero currentJD skips the fixed frames.
func (k *Kepler) Propagate(endTime, currentJD float64) error {
	k.r, k.v = k.At(endTime)
	k.t = endTime
	if currentJD != 0 {
		k.frames = NewFixedFrames(k.r, k.v, currentJD)
	}
	return nil
}

// PositionI returns the current inertial position.
func (k *Kepler) PositionI() md3.Vec { return k.r }

// VelocityI returns the current inertial velocity.
func (k *Kepler) VelocityI() md3.Vec { return k.v }

// QuaternionI2LVLH returns the current attitude of the LVLH frame.
func (k *Kepler) QuaternionI2LVLH() quat.Number {
	return QuaternionI2LVLH(k.r, k.v)
}

// Frames returns the Earth fixed state computed by the last Propagate.
func (k *Kepler) Frames() FixedFrames { return k.frames }

// Time returns the time of the current state.
func (k *Kepler) Time() float64 { return k.t }

// Mu returns the gravitational parameter.
func (k *Kepler) Mu() float64 { return k.μ }

// SemiMajorAxis returns a.
func (k *Kepler) SemiMajorAxis() float64 { return k.a }

// Eccentricity returns e.
func (k *Kepler) Eccentricity() float64 { return k.e }

// MeanMotion returns n in radians per time unit.
func (k *Kepler) MeanMotion() float64 { return k.n }

// Period returns the orbital period.
func (k *Kepler) Period() float64 { return 2 * math.Pi / k.n }

// Energy returns the specific mechanical energy ξ.
func (k *Kepler) Energy() float64 { return -k.μ / (2 * k.a) }

func (k *Kepler) String() string {
	return fmt.Sprintf("a=%.3f e=%.6f n=%.6e t=%.3f", k.a, k.e, k.n, k.t)
}

// EccentricAnomalyFromMean solves Kepler's equation with Newton-Raphson.
func EccentricAnomalyFromMean(M, e float64) float64 {
	M = normalizeAngle(M)
	if e == 0 {
		return M
	}
	E := M
	if e > 0.8 {
		E = math.Pi
	}
	for i := 0; i < 50; i++ {
		δ := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= δ
		if math.Abs(δ) < 1e-14 {
			break
		}
	}
	return E
}

func normalizeAngle(θ float64) float64 {
	θ = math.Mod(θ, 2*math.Pi)
	if θ < 0 {
		θ += 2 * math.Pi
	}
	return θ
}
