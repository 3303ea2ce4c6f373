package ode

import (
	"errors"
	"fmt"
)

// Domain errors for integration and scenario setup.
var (
	// ErrInvalidGrid indicates an empty or non-increasing report-time grid.
	ErrInvalidGrid = errors.New("ode: invalid report grid")

	// ErrStepTooSmall indicates the adaptive step shrank below the minimum
	// without satisfying the error tolerance.
	ErrStepTooSmall = errors.New("ode: adaptive timestep below minimum")

	// ErrMaxSteps indicates the internal step budget ran out before the
	// final report time was reached.
	ErrMaxSteps = errors.New("ode: max internal steps exceeded")

	// ErrParameterBounds indicates a model parameter outside its valid range.
	ErrParameterBounds = errors.New("ode: parameter out of valid bounds")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("ode: invalid state (NaN or Inf detected)")
)

// SolveError wraps an integration failure with step context.
type SolveError struct {
	Step    int
	Time    float64
	Dt      float64
	Wrapped error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g, dt=%.3g): %v", e.Step, e.Time, e.Dt, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
