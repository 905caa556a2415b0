package s2e

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrNumericalDegeneracy matches every NumericalDegeneracyError.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
	// ErrBackwardPropagation is returned when propagating to an earlier time than the current one.
	ErrBackwardPropagation = errors.New("cannot propagate backward in time")
)

// ConfigurationError is returned for unknown or unimplemented configuration values.
type ConfigurationError struct {
	Field  string      // Configuration entry at fault
	Value  interface{} // Offending value
	Reason string
}

// Error returns the error message for ConfigurationError.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) true.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NumericalDegeneracyError is returned when an input makes the linearized relative dynamics
// ill defined, e.g. a null reference radius or a non positive gravitational parameter.
type NumericalDegeneracyError struct {
	Quantity string
	Value    float64
}

// Error returns the error message for NumericalDegeneracyError.
func (e *NumericalDegeneracyError) Error() string {
	return fmt.Sprintf("numerical degeneracy: %s=%g", e.Quantity, e.Value)
}

// Is makes errors.Is(err, ErrNumericalDegeneracy) true.
func (e *NumericalDegeneracyError) Is(target error) bool {
	return target == ErrNumericalDegeneracy
}
