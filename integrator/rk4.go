package integrator

const (
	half     = 1 / 2.0
	oneSixth = 1 / 6.0
	oneThird = 1 / 3.0
)

// RK4Tableau is the classical four stage, fourth order method.
var RK4Tableau = Tableau{
	Name:  "RK4",
	Order: 4,
	Nodes: []float64{0, half, half, 1},
	Coupling: [][]float64{
		{},
		{half},
		{0, half},
		{0, 0, 1},
	},
	Weights: []float64{oneSixth, oneThird, oneThird, oneSixth},
}

// NewRK4 returns a new RK4 integrator of dimension dim, starting at t=0 from the zero state.
func NewRK4(stepWidth float64, dim int, f Func) (*RungeKutta, error) {
	return newRungeKutta(RK4Tableau, stepWidth, dim, f)
}
