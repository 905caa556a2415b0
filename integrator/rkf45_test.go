package integrator

import (
	"errors"
	"math"
	"testing"

	"github.com/HiroyukiBando/s2e-core/orbit"
	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func newIntegrator(t *testing.T, method Method, h float64, dim int, f Func) *Manager {
	m, err := NewManager(method, h, dim, f)
	if err != nil {
		t.Fatalf("%s: %s", method, err)
	}
	return m
}

func TestConstantAndQuadraticLaws(t *testing.T) {
	const (
		h = 0.1
		n = 10000
	)
	for _, method := range []Method{RK4, RKF45} {
		for name, tc := range map[string]struct {
			f   Func
			exp float64
		}{
			"constant":  {constantODE, n * h},
			"quadratic": {quadraticODE, (n * h) * (n * h)},
		} {
			ig := newIntegrator(t, method, h, 1, tc.f)
			if s := ig.GetState(); s[0] != 0 {
				t.Fatalf("%s %s: initial state %f", method, name, s[0])
			}
			for i := 0; i < n; i++ {
				ig.Integrate()
			}
			if s := ig.GetState(); !scalar.EqualWithinAbs(s[0], tc.exp, 1e-6) {
				t.Fatalf("%s %s: %f != %f", method, name, s[0], tc.exp)
			}
		}
	}
}

func TestPositionVelocity1D(t *testing.T) {
	const (
		h = 0.1
		n = 10000
	)
	for _, method := range []Method{RK4, RKF45} {
		ig := newIntegrator(t, method, h, 2, positionVelocityODE)
		x0 := []float64{0, 0.1}
		if err := ig.Setup(0, x0); err != nil {
			t.Fatal(err)
		}
		if s := ig.GetState(); s[0] != x0[0] || s[1] != x0[1] {
			t.Fatalf("%s: Setup state %v", method, s)
		}
		for i := 0; i < n; i++ {
			ig.Integrate()
		}
		s := ig.GetState()
		if !scalar.EqualWithinAbs(s[0], h*n*x0[1]+x0[0], 1e-6) || !scalar.EqualWithinAbs(s[1], x0[1], 1e-6) {
			t.Fatalf("%s: %v", method, s)
		}
	}
}

func TestRKF45Tableau(t *testing.T) {
	if err := RKF45Tableau.Validate(); err != nil {
		t.Fatal(err)
	}
	// Fourth and fifth order quadrature conditions.
	c := RKF45Tableau.Nodes
	for q := 1; q <= 5; q++ {
		var hi, lo float64
		for i, ci := range c {
			hi += RKF45Tableau.Weights[i] * math.Pow(ci, float64(q-1))
			lo += RKF45Tableau.LowerWeights[i] * math.Pow(ci, float64(q-1))
		}
		if !scalar.EqualWithinAbs(hi, 1/float64(q), 1e-14) {
			t.Fatalf("fifth order weights fail the order %d quadrature condition: %f", q, hi)
		}
		if q <= 4 && !scalar.EqualWithinAbs(lo, 1/float64(q), 1e-14) {
			t.Fatalf("fourth order weights fail the order %d quadrature condition: %f", q, lo)
		}
	}
	bad := RKF45Tableau
	bad.LowerWeights = []float64{1}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTableau) {
		t.Fatalf("expected ErrInvalidTableau, got %v", err)
	}
}

func TestInterpolationQuadratic(t *testing.T) {
	const h = 10.0
	rkf, err := NewRKF45(h, 1, quadraticODE)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rkf.CalcInterpolationState(0.5); !errors.Is(err, ErrNoStep) {
		t.Fatalf("expected ErrNoStep, got %v", err)
	}
	rkf.Integrate()
	if s := rkf.GetState(); !scalar.EqualWithinAbs(s[0], h*h, 1e-6) {
		t.Fatalf("final value %f", s[0])
	}
	for _, σ := range []float64{0.1, 0.515, 0.9} {
		s, err := rkf.CalcInterpolationState(σ)
		if err != nil {
			t.Fatal(err)
		}
		if exp := (h * σ) * (h * σ); !scalar.EqualWithinAbs(s[0], exp, 1e-6) {
			t.Fatalf("σ=%f: %f != %f", σ, s[0], exp)
		}
	}
	for _, σ := range []float64{-0.1, 1.01, math.NaN()} {
		if _, err := rkf.CalcInterpolationState(σ); !errors.Is(err, ErrInterpolationRange) {
			t.Fatalf("σ=%f: expected ErrInterpolationRange, got %v", σ, err)
		}
	}
}

func TestInterpolationBoundaries(t *testing.T) {
	rkf, err := NewRKF45(0.7, 4, twoBody)
	if err != nil {
		t.Fatal(err)
	}
	if err := rkf.Setup(0, keplerInitialState(0.3)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		before := rkf.GetState()
		rkf.Integrate()
		after := rkf.GetState()
		s0, err := rkf.CalcInterpolationState(0)
		if err != nil {
			t.Fatal(err)
		}
		s1, err := rkf.CalcInterpolationState(1)
		if err != nil {
			t.Fatal(err)
		}
		for j := range before {
			if s0[j] != before[j] || s1[j] != after[j] {
				t.Fatalf("step %d component %d: σ=0 %v != %v or σ=1 %v != %v", i, j, s0, before, s1, after)
			}
		}
		if rkf.PreviousIndependentVariable() != rkf.GetIndependentVariable()-0.7 && i == 0 {
			t.Fatalf("previous time %f", rkf.PreviousIndependentVariable())
		}
	}
}

func TestRKF45DenseWeights(t *testing.T) {
	tab := RKF45Tableau
	n := tab.Stages()
	// aac[i] = Σ_j a_ij Σ_k a_jk c_k
	ac := make([]float64, n)
	aac := make([]float64, n)
	for i, row := range tab.Coupling {
		for j, a := range row {
			ac[i] += a * tab.Nodes[j]
			aac[i] += a * ac[j]
		}
	}
	b := make([]float64, n)
	for _, σ := range []float64{0, 0.1, 0.25, 0.5, 0.73, 1} {
		denseWeights(b, tab.Weights, tab.Dense, σ)
		if b[1] != 0 {
			t.Fatalf("σ=%f: the second stage has weight %g", σ, b[1])
		}
		for q := 1; q <= 5; q++ {
			if q == 4 {
				continue
			}
			var sum float64
			for i, ci := range tab.Nodes {
				sum += b[i] * math.Pow(ci, float64(q-1))
			}
			if exp := math.Pow(σ, float64(q)) / float64(q); !scalar.EqualWithinAbs(sum, exp, 1e-13) {
				t.Fatalf("σ=%f: order %d quadrature condition %g != %g", σ, q, sum, exp)
			}
		}
		if lin := floats.Dot(b, aac); !scalar.EqualWithinAbs(lin, math.Pow(σ, 4)/24, 1e-13) {
			t.Fatalf("σ=%f: linear fourth order condition %g != %g", σ, lin, math.Pow(σ, 4)/24)
		}
	}
	denseWeights(b, tab.Weights, tab.Dense, 1)
	if !floats.Equal(b, tab.Weights) {
		t.Fatalf("weights at the end of the step %v != %v", b, tab.Weights)
	}
}

func TestInterpolationConvergence(t *testing.T) {
	// Midpoint error of y' = y over a single step.
	midpointError := func(h float64) float64 {
		rkf, err := NewRKF45(h, 1, func(_ float64, s, d []float64) { d[0] = s[0] })
		if err != nil {
			t.Fatal(err)
		}
		if err := rkf.Setup(0, []float64{1}); err != nil {
			t.Fatal(err)
		}
		rkf.Integrate()
		s, err := rkf.CalcInterpolationState(0.5)
		if err != nil {
			t.Fatal(err)
		}
		return math.Abs(s[0] - math.Exp(h/2))
	}
	for _, h := range []float64{0.4, 0.2} {
		if ratio := midpointError(h) / midpointError(h/2); ratio < 16 {
			t.Fatalf("h=%f: midpoint error ratio %f, the dense output is below third order", h, ratio)
		}
	}
}

// twoBody is a planar two body problem with μ=1: state is [x, y, vx, vy].
func twoBody(t float64, s, d []float64) {
	r := math.Hypot(s[0], s[1])
	r3 := r * r * r
	d[0] = s[2]
	d[1] = s[3]
	d[2] = -s[0] / r3
	d[3] = -s[1] / r3
}

// keplerInitialState is the periapsis of an orbit with a=1.
func keplerInitialState(e float64) []float64 {
	return []float64{1 - e, 0, 0, math.Sqrt((1 + e) / (1 - e))}
}

func keplerReference(t *testing.T, x0 []float64, at float64) []float64 {
	k, err := orbit.NewKeplerFromRV(1, md3.Vec{X: x0[0], Y: x0[1]}, md3.Vec{X: x0[2], Y: x0[3]}, 0)
	if err != nil {
		t.Fatal(err)
	}
	R, V := k.At(at)
	return []float64{R.X, R.Y, V.X, V.Y}
}

func assertState(t *testing.T, what string, exp, got []float64, ε float64) {
	t.Helper()
	for i := range exp {
		if !scalar.EqualWithinAbs(exp[i], got[i], ε) {
			t.Fatalf("%s: component %d %f != %f (ε=%g)\nexp: %v\ngot: %v", what, i, got[i], exp[i], ε, exp, got)
		}
	}
}

func TestKeplerAccuracy(t *testing.T) {
	for _, tc := range []struct {
		e, h         float64
		n            int
		rk4ε, rkf45ε float64
	}{
		{0.1, 0.1, 200, 2e-4, 2e-5},
		{0.9, 0.01, 2000, 2e-1, 1e-2},
	} {
		x0 := keplerInitialState(tc.e)
		rk4 := newIntegrator(t, RK4, tc.h, 4, twoBody)
		rkf := newIntegrator(t, RKF45, tc.h, 4, twoBody)
		for _, ig := range []*Manager{rk4, rkf} {
			if err := ig.Setup(0, x0); err != nil {
				t.Fatal(err)
			}
		}
		for i := 0; i < tc.n; i++ {
			rk4.Integrate()
			rkf.Integrate()
		}
		exp := keplerReference(t, x0, float64(tc.n)*tc.h)
		assertState(t, "RK4", exp, rk4.GetState(), tc.rk4ε)
		assertState(t, "RKF45", exp, rkf.GetState(), tc.rkf45ε)
	}
}

func TestKeplerInterpolation(t *testing.T) {
	const h = 0.25
	x0 := keplerInitialState(0.1)
	rkf, err := NewRKF45(h, 4, twoBody)
	if err != nil {
		t.Fatal(err)
	}
	if err := rkf.Setup(0, x0); err != nil {
		t.Fatal(err)
	}
	rkf.Integrate()
	assertState(t, "final value", keplerReference(t, x0, h), rkf.GetState(), 1e-4)
	for _, tc := range []struct{ σ, ε float64 }{{0.11, 1e-4}, {0.5, 2e-4}, {0.79, 5e-4}} {
		s, err := rkf.CalcInterpolationState(tc.σ)
		if err != nil {
			t.Fatal(err)
		}
		assertState(t, "interpolation", keplerReference(t, x0, tc.σ*h), s, tc.ε)
	}
}

func TestLocalTruncationError(t *testing.T) {
	rkf, err := NewRKF45(10, 1, quadraticODE)
	if err != nil {
		t.Fatal(err)
	}
	if rkf.LocalTruncationError() != nil {
		t.Fatal("error estimate before any step")
	}
	rkf.Integrate()
	if lte := rkf.LocalTruncationError(); !scalar.EqualWithinAbs(lte[0], 0, 1e-10) {
		t.Fatalf("both orders are exact for a quadratic, got %g", lte[0])
	}
	// The local error of the fourth order solution scales as h⁵.
	estimate := func(h float64) float64 {
		rkf, err := NewRKF45(h, 4, twoBody)
		if err != nil {
			t.Fatal(err)
		}
		if err := rkf.Setup(0, keplerInitialState(0.1)); err != nil {
			t.Fatal(err)
		}
		rkf.Integrate()
		return floats.Norm(rkf.LocalTruncationError(), 2)
	}
	ratio := estimate(0.2) / estimate(0.1)
	if ratio < 16 || ratio > 64 {
		t.Fatalf("error estimate ratio %f is not close to 2⁵", ratio)
	}
}
