package exchange

import (
	"errors"
	"fmt"
)

// Domain errors. All are returned as values; none abort past the service
// boundary.
var (
	// ErrInvalidIon indicates malformed physical parameters on an ion.
	ErrInvalidIon = errors.New("ionlab: invalid ion")

	// ErrDuplicateIon indicates an id collision on catalog add.
	ErrDuplicateIon = errors.New("ionlab: duplicate ion")

	// ErrNotFound indicates a catalog lookup miss.
	ErrNotFound = errors.New("ionlab: ion not found")

	// ErrInsufficientTrainingData indicates too few measured ions to fit.
	ErrInsufficientTrainingData = errors.New("ionlab: insufficient training data")

	// ErrDidNotConverge indicates the solver hit its iteration bound.
	// The accompanying result still carries the best iterate.
	ErrDidNotConverge = errors.New("ionlab: did not converge")

	// ErrConfiguration indicates an out-of-range tolerance, iteration,
	// horizon or resin parameter.
	ErrConfiguration = errors.New("ionlab: invalid configuration")
)

// ConvergenceError reports a solve that ran out of iterations. It is
// recoverable: callers may retry with a relaxed tolerance.
type ConvergenceError struct {
	Iterations int
	MaxDelta   float64
	Tolerance  float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%v after %d iterations (max delta %.3g, tolerance %.3g)",
		ErrDidNotConverge, e.Iterations, e.MaxDelta, e.Tolerance)
}

func (e *ConvergenceError) Unwrap() error { return ErrDidNotConverge }

// ConfigError reports a single out-of-range configuration field.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%v (%s)", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }
