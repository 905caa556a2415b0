package s2e

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/HiroyukiBando/s2e-core/integrator"
	"github.com/HiroyukiBando/s2e-core/orbit"
	kitlog "github.com/go-kit/log"
	"github.com/soypat/geometry/md3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// RelativeOrbitConfig defines a spacecraft orbiting relative to a reference spacecraft.
// Lengths and times must be consistent with Mu, e.g. meters and seconds.
type RelativeOrbitConfig struct {
	Mu          float64 // Gravitational parameter of the central body.
	StepWidth   float64 // Nominal integration step, stepwise update only.
	InitialTime float64 // Time of the initial state.
	ReferenceID int

	InitialPositionLVLH md3.Vec
	InitialVelocityLVLH md3.Vec

	UpdateMethod  UpdateMethod
	DynamicsModel DynamicsModel
	STMModel      STMModel          // Closed form update only.
	Integrator    integrator.Method // Stepwise update only.
}

// RelativeOrbit propagates the position and velocity of a spacecraft relative to a reference
// spacecraft, in the LVLH frame of the reference, and converts it to the inertial frame.
type RelativeOrbit struct {
	name      string
	conf      RelativeOrbitConfig
	reference ReferenceSpacecraft
	logger    kitlog.Logger
	metrics   *Metrics

	initialState []float64
	systemMatrix *mat.Dense          // stepwise only
	ig           *integrator.Manager // stepwise only
	stm          *mat.Dense          // last closed form transition

	t                float64
	posLVLH, velLVLH md3.Vec
	posI, velI       md3.Vec
	accI             md3.Vec
	frames           orbit.FixedFrames
	calcEnabled      bool
}

// NewRelativeOrbit returns a relative orbit around the reference registered in refs under
// conf.ReferenceID. A nil logger discards the logs.
func NewRelativeOrbit(name string, conf RelativeOrbitConfig, refs *RelativeInformation, logger kitlog.Logger) (*RelativeOrbit, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "relorbit", name)
	if refs == nil {
		return nil, &ConfigurationError{"relative information", nil, "may not be nil"}
	}
	ref, err := refs.ReferenceSpacecraft(conf.ReferenceID)
	if err != nil {
		return nil, err
	}
	ro := &RelativeOrbit{name: name, conf: conf, reference: ref, logger: logger, t: conf.InitialTime, calcEnabled: true}
	ro.posLVLH = conf.InitialPositionLVLH
	ro.velLVLH = conf.InitialVelocityLVLH
	ro.initialState = []float64{
		conf.InitialPositionLVLH.X, conf.InitialPositionLVLH.Y, conf.InitialPositionLVLH.Z,
		conf.InitialVelocityLVLH.X, conf.InitialVelocityLVLH.Y, conf.InitialVelocityLVLH.Z,
	}
	r := md3.Norm(ref.PositionI())

	switch conf.UpdateMethod {
	case UpdateStepwise:
		if ro.systemMatrix, err = SystemMatrix(conf.DynamicsModel, r, conf.Mu); err != nil {
			return nil, ro.fail(err)
		}
		if ro.ig, err = integrator.NewManager(conf.Integrator, conf.StepWidth, len(ro.initialState), ro.derivative); err != nil {
			return nil, ro.fail(err)
		}
		if err = ro.ig.Setup(conf.InitialTime, ro.initialState); err != nil {
			return nil, ro.fail(err)
		}
	case UpdateClosedForm:
		if ro.stm, err = StateTransitionMatrix(conf.STMModel, conf.DynamicsModel, r, conf.Mu, 0); err != nil {
			return nil, ro.fail(err)
		}
	default:
		return nil, ro.fail(&ConfigurationError{"update method", uint8(conf.UpdateMethod), "not implemented"})
	}
	if err := ro.toInertial(); err != nil {
		return nil, ro.fail(err)
	}
	logger.Log("level", "info", "subsys", "relorbit", "reference", conf.ReferenceID, "update", conf.UpdateMethod, "model", conf.DynamicsModel, "r0(LVLH)", ro.posLVLH, "v0(LVLH)", ro.velLVLH)
	return ro, nil
}

// fail logs err and converts integrator configuration errors.
func (ro *RelativeOrbit) fail(err error) error {
	var cerr *integrator.ConfigError
	if errors.As(err, &cerr) {
		err = &ConfigurationError{cerr.Field, cerr.Value, cerr.Reason}
	}
	ro.logger.Log("level", "error", "subsys", "relorbit", "err", err)
	return fmt.Errorf("relative orbit %s: %w", ro.name, err)
}

// derivative is the linearized relative dynamics: dx/dt = A x.
func (ro *RelativeOrbit) derivative(t float64, state, derivative []float64) {
	d := mat.NewVecDense(len(derivative), derivative)
	d.MulVec(ro.systemMatrix, mat.NewVecDense(len(state), state))
}

// Propagate moves the relative orbit to endTime, then updates its inertial state and, if
// currentJD is not zero, its Earth fixed state at that Julian date.
// Stepwise propagation only moves forward. Closed form propagation is evaluated from the
// initial state and accepts any endTime after InitialTime.
func (ro *RelativeOrbit) Propagate(endTime, currentJD float64) error {
	if !ro.calcEnabled {
		return nil
	}
	from := ro.t
	if ro.conf.UpdateMethod == UpdateClosedForm {
		from = ro.conf.InitialTime
	}
	if math.IsNaN(endTime) || endTime < from {
		return fmt.Errorf("relative orbit %s: %w: from %f to %f", ro.name, ErrBackwardPropagation, from, endTime)
	}
	start := time.Now()
	// Disturbances are not part of the linearized relative dynamics.
	ro.accI = md3.Vec{}

	var steps uint64
	switch ro.conf.UpdateMethod {
	case UpdateStepwise:
		plan, err := integrator.NewStepPlan(ro.ig.GetIndependentVariable(), endTime, ro.ig.GetStepWidth(), integrator.ArrivalTolerance)
		if err != nil {
			return ro.fail(err)
		}
		before := ro.ig.Steps()
		if err := plan.Run(ro.ig); err != nil {
			return ro.fail(err)
		}
		steps = ro.ig.Steps() - before
		ro.setLVLH(ro.ig.GetState())
	case UpdateClosedForm:
		r := md3.Norm(ro.reference.PositionI())
		φ, err := StateTransitionMatrix(ro.conf.STMModel, ro.conf.DynamicsModel, r, ro.conf.Mu, endTime-ro.conf.InitialTime)
		if err != nil {
			return ro.fail(err)
		}
		ro.stm = φ
		var x mat.VecDense
		x.MulVec(φ, mat.NewVecDense(len(ro.initialState), ro.initialState))
		ro.setLVLH(x.RawVector().Data)
	default:
		return ro.fail(&ConfigurationError{"update method", uint8(ro.conf.UpdateMethod), "not implemented"})
	}
	ro.t = endTime

	if err := ro.toInertial(); err != nil {
		return ro.fail(err)
	}
	if currentJD != 0 {
		ro.frames = orbit.NewFixedFrames(ro.posI, ro.velI, currentJD)
	}
	method := ""
	if ro.ig != nil {
		method = ro.ig.Method().String()
	}
	ro.metrics.observePropagation(ro.name, ro.conf.UpdateMethod, method, steps, time.Since(start).Seconds(), md3.Norm(ro.posLVLH))
	return nil
}

func (ro *RelativeOrbit) setLVLH(s []float64) {
	ro.posLVLH = md3.Vec{X: s[0], Y: s[1], Z: s[2]}
	ro.velLVLH = md3.Vec{X: s[3], Y: s[4], Z: s[5]}
}

// toInertial adds the LVLH relative state, rotated to the inertial frame, to the current
// state of the reference spacecraft.
func (ro *RelativeOrbit) toInertial() error {
	q := ro.reference.QuaternionI2LVLH()
	qNorm := quat.Abs(q)
	if !(qNorm > 0) || math.IsInf(qNorm, 1) {
		return &NumericalDegeneracyError{"reference attitude quaternion norm", qNorm}
	}
	qLVLH2I := quat.Conj(quat.Scale(1/qNorm, q))
	ro.posI = md3.Add(ro.reference.PositionI(), orbit.Rotate(qLVLH2I, ro.posLVLH))
	ro.velI = md3.Add(ro.reference.VelocityI(), orbit.Rotate(qLVLH2I, ro.velLVLH))
	return nil
}

// InterpolateLVLH returns the relative state at a fraction σ of the last integration step.
// Only available for the stepwise update with an integrator supporting dense output.
func (ro *RelativeOrbit) InterpolateLVLH(σ float64) (md3.Vec, md3.Vec, error) {
	if ro.ig == nil {
		return md3.Vec{}, md3.Vec{}, fmt.Errorf("relative orbit %s: %w", ro.name, integrator.ErrInterpolationUnsupported)
	}
	s, err := ro.ig.CalcInterpolationState(σ)
	if err != nil {
		return md3.Vec{}, md3.Vec{}, fmt.Errorf("relative orbit %s: %w", ro.name, err)
	}
	return md3.Vec{X: s[0], Y: s[1], Z: s[2]}, md3.Vec{X: s[3], Y: s[4], Z: s[5]}, nil
}

// Name returns the name of this relative orbit.
func (ro *RelativeOrbit) Name() string { return ro.name }

// Config returns the configuration of this relative orbit.
func (ro *RelativeOrbit) Config() RelativeOrbitConfig { return ro.conf }

// PropagationTime returns the time of the current state.
func (ro *RelativeOrbit) PropagationTime() float64 { return ro.t }

// RelativePositionLVLH returns the position relative to the reference, in its LVLH frame.
func (ro *RelativeOrbit) RelativePositionLVLH() md3.Vec { return ro.posLVLH }

// RelativeVelocityLVLH returns the velocity relative to the reference, in its LVLH frame.
func (ro *RelativeOrbit) RelativeVelocityLVLH() md3.Vec { return ro.velLVLH }

// PositionI returns the inertial position.
func (ro *RelativeOrbit) PositionI() md3.Vec { return ro.posI }

// VelocityI returns the inertial velocity.
func (ro *RelativeOrbit) VelocityI() md3.Vec { return ro.velI }

// QuaternionI2LVLH returns the attitude of this spacecraft's own LVLH frame, so that it may
// serve as a reference for other relative orbits.
func (ro *RelativeOrbit) QuaternionI2LVLH() quat.Number {
	return orbit.QuaternionI2LVLH(ro.posI, ro.velI)
}

// Frames returns the Earth fixed state of the last propagation with a Julian date.
func (ro *RelativeOrbit) Frames() orbit.FixedFrames { return ro.frames }

// PositionECEF returns the Earth fixed position of the last propagation with a Julian date.
func (ro *RelativeOrbit) PositionECEF() md3.Vec { return ro.frames.PositionECEF }

// VelocityECEF returns the Earth fixed velocity of the last propagation with a Julian date.
func (ro *RelativeOrbit) VelocityECEF() md3.Vec { return ro.frames.VelocityECEF }

// Geodetic returns the geodetic position of the last propagation with a Julian date.
func (ro *RelativeOrbit) Geodetic() orbit.Geodetic { return ro.frames.Geodetic }

// InitialState returns a copy of the initial [position, velocity] in LVLH.
func (ro *RelativeOrbit) InitialState() []float64 {
	return append([]float64(nil), ro.initialState...)
}

// SystemMatrix returns a copy of the system matrix, or nil for the closed form update.
func (ro *RelativeOrbit) SystemMatrix() *mat.Dense {
	if ro.systemMatrix == nil {
		return nil
	}
	return mat.DenseCopyOf(ro.systemMatrix)
}

// STM returns a copy of the last state transition matrix, or nil for the stepwise update.
func (ro *RelativeOrbit) STM() *mat.Dense {
	if ro.stm == nil {
		return nil
	}
	return mat.DenseCopyOf(ro.stm)
}

// Method returns the integration method of the stepwise update, or 0.
func (ro *RelativeOrbit) Method() integrator.Method {
	if ro.ig == nil {
		return 0
	}
	return ro.ig.Method()
}

// AddAccelerationI accumulates a disturbance acceleration. It is discarded by the next
// Propagate: relative dynamics do not include disturbances.
func (ro *RelativeOrbit) AddAccelerationI(acc md3.Vec) {
	ro.accI = md3.Add(ro.accI, acc)
}

// AccelerationI returns the accumulated disturbance acceleration.
func (ro *RelativeOrbit) AccelerationI() md3.Vec { return ro.accI }

// SetCalcEnabled enables or disables the propagation.
func (ro *RelativeOrbit) SetCalcEnabled(enabled bool) { ro.calcEnabled = enabled }

// CalcEnabled returns whether Propagate updates the state.
func (ro *RelativeOrbit) CalcEnabled() bool { return ro.calcEnabled }

// SetMetrics records the propagations of this orbit in m.
func (ro *RelativeOrbit) SetMetrics(m *Metrics) { ro.metrics = m }

func (ro *RelativeOrbit) String() string {
	return fmt.Sprintf("%s t=%.3f r(LVLH)=%+v v(LVLH)=%+v", ro.name, ro.t, ro.posLVLH, ro.velLVLH)
}
