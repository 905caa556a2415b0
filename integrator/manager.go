package integrator

import (
	"fmt"
	"strings"
)

// Method selects a concrete integration method.
type Method uint8

const (
	// RK4 is the classical fourth order method.
	RK4 Method = iota + 1
	// RKF45 is the Runge-Kutta-Fehlberg embedded method with dense output.
	RKF45
)

func (m Method) String() string {
	switch m {
	case RK4:
		return "rk4"
	case RKF45:
		return "rkf45"
	default:
		panic(fmt.Errorf("unknown integration method %d", uint8(m)))
	}
}

// Valid returns whether this method is implemented.
func (m Method) Valid() bool {
	return m == RK4 || m == RKF45
}

// MethodFromString returns the method named s (case insensitive).
func MethodFromString(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rk4":
		return RK4, nil
	case "rkf45", "rkf":
		return RKF45, nil
	default:
		return 0, &ConfigError{"method", s, "unknown integration method"}
	}
}

// Manager owns one integrator chosen at construction and forwards every call to it.
type Manager struct {
	Integrator
	method Method
}

// NewManager returns a Manager around a new integrator of the requested method.
func NewManager(method Method, stepWidth float64, dim int, f Func) (*Manager, error) {
	var (
		ig  Integrator
		err error
	)
	switch method {
	case RK4:
		ig, err = NewRK4(stepWidth, dim, f)
	case RKF45:
		ig, err = NewRKF45(stepWidth, dim, f)
	default:
		return nil, &ConfigError{"method", uint8(method), "unknown integration method"}
	}
	if err != nil {
		return nil, err
	}
	return &Manager{Integrator: ig, method: method}, nil
}

// Method returns the integration method of the managed integrator.
func (m *Manager) Method() Method {
	return m.method
}

// CalcInterpolationState forwards to the managed integrator if it supports dense output.
func (m *Manager) CalcInterpolationState(σ float64) ([]float64, error) {
	ip, ok := m.Integrator.(Interpolator)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInterpolationUnsupported, m.method)
	}
	return ip.CalcInterpolationState(σ)
}
