package s2e

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	earthμ    = 3.986004418e14 // m^3/s^2
	refRadius = 6928137.0      // m
)

func TestMeanMotion(t *testing.T) {
	n, err := MeanMotion(refRadius, earthμ)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(2*math.Pi/n, 5739.0, 0.1) {
		t.Fatalf("incorrect period %f s", 2*math.Pi/n)
	}
	for _, tc := range []struct{ r, μ float64 }{
		{0, earthμ},
		{-refRadius, earthμ},
		{math.NaN(), earthμ},
		{math.Inf(1), earthμ},
		{refRadius, 0},
		{refRadius, -earthμ},
		{refRadius, math.NaN()},
	} {
		if _, err := MeanMotion(tc.r, tc.μ); !errors.Is(err, ErrNumericalDegeneracy) {
			t.Errorf("r=%g μ=%g: expected a degeneracy error, got %v", tc.r, tc.μ, err)
		}
	}
}

func TestHillSystemMatrix(t *testing.T) {
	A, err := HillSystemMatrix(refRadius, earthμ)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := MeanMotion(refRadius, earthμ)
	exp := map[[2]int]float64{
		{0, 3}: 1, {1, 4}: 1, {2, 5}: 1,
		{3, 0}: 3 * n * n, {3, 4}: 2 * n,
		{4, 3}: -2 * n,
		{5, 2}: -n * n,
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if A.At(i, j) != exp[[2]int{i, j}] {
				t.Fatalf("A[%d][%d]=%g, expected %g", i, j, A.At(i, j), exp[[2]int{i, j}])
			}
		}
	}
}

func TestHCWStateTransitionMatrix(t *testing.T) {
	φ0, err := HCWStateTransitionMatrix(refRadius, earthμ, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(φ0, eye(6)) {
		t.Fatalf("STM at t=0 is not the identity:\n%v", mat.Formatted(φ0))
	}
	// Φ(t1+t2) = Φ(t2) Φ(t1)
	φ1, _ := HCWStateTransitionMatrix(refRadius, earthμ, 600)
	φ2, _ := HCWStateTransitionMatrix(refRadius, earthμ, 1400)
	φ12, _ := HCWStateTransitionMatrix(refRadius, earthμ, 2000)
	var prod mat.Dense
	prod.Mul(φ2, φ1)
	if !mat.EqualApprox(&prod, φ12, 1e-9) {
		t.Fatalf("STM does not compose:\n%v\n!=\n%v", mat.Formatted(&prod), mat.Formatted(φ12))
	}
	// A circular orbit of the Hill frame comes back after one period.
	n, _ := MeanMotion(refRadius, earthμ)
	φT, _ := HCWStateTransitionMatrix(refRadius, earthμ, 2*math.Pi/n)
	x0 := mat.NewVecDense(6, []float64{10, 0, 5, 0, -20 * n, 0})
	var x mat.VecDense
	x.MulVec(φT, x0)
	if !mat.EqualApprox(&x, x0, 1e-9) {
		t.Fatalf("bounded motion is not periodic: %v != %v", x.RawVector().Data, x0.RawVector().Data)
	}
}

func TestHCWMatchesMatrixExponential(t *testing.T) {
	A, err := HillSystemMatrix(refRadius, earthμ)
	if err != nil {
		t.Fatal(err)
	}
	for _, dt := range []float64{0, 1, 60, 600, 5000} {
		hcw, err := HCWStateTransitionMatrix(refRadius, earthμ, dt)
		if err != nil {
			t.Fatal(err)
		}
		expm := ExponentialStateTransitionMatrix(A, dt)
		if !mat.EqualApprox(hcw, expm, 1e-8) {
			t.Fatalf("t=%f: HCW and exp(At) differ:\n%v\n!=\n%v", dt, mat.Formatted(hcw), mat.Formatted(expm))
		}
	}
}

func TestModelsFromString(t *testing.T) {
	if m, err := UpdateMethodFromString(" RK "); err != nil || m != UpdateStepwise {
		t.Fatalf("rk: %v %v", m, err)
	}
	if m, err := UpdateMethodFromString("stm"); err != nil || m != UpdateClosedForm || m.String() != "stm" {
		t.Fatalf("stm: %v %v", m, err)
	}
	if m, err := DynamicsModelFromString("Hill"); err != nil || m != Hill {
		t.Fatalf("hill: %v %v", m, err)
	}
	if m, err := STMModelFromString("expm"); err != nil || m != MatrixExponential {
		t.Fatalf("expm: %v %v", m, err)
	}
	for name, fn := range map[string]func(string) error{
		"update":   func(s string) error { _, err := UpdateMethodFromString(s); return err },
		"dynamics": func(s string) error { _, err := DynamicsModelFromString(s); return err },
		"stm":      func(s string) error { _, err := STMModelFromString(s); return err },
	} {
		if err := fn("yamanaka-ankersen"); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected a configuration error, got %v", name, err)
		}
	}
}

func TestUnimplementedModels(t *testing.T) {
	if _, err := SystemMatrix(DynamicsModel(42), refRadius, earthμ); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown dynamics model: %v", err)
	}
	if _, err := StateTransitionMatrix(STMModel(42), Hill, refRadius, earthμ, 10); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown STM model: %v", err)
	}
	if _, err := StateTransitionMatrix(HCW, DynamicsModel(42), refRadius, earthμ, 10); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("HCW on unknown dynamics: %v", err)
	}
	if _, err := StateTransitionMatrix(MatrixExponential, Hill, 0, earthμ, 10); !errors.Is(err, ErrNumericalDegeneracy) {
		t.Fatalf("null radius: %v", err)
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
