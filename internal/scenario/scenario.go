package scenario

import (
	"fmt"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/ode"
)

// Scenario is one named (parameters, initial state, report grid) tuple.
// Built once, never mutated, consumed once per batch run.
type Scenario struct {
	Name   string
	Params epidemic.Params
	Init   ode.State
	T0     float64
	Times  []float64
}

// Uniform builds an evenly spaced report grid of n points over
// [t0, t0+horizon].
func Uniform(t0, horizon float64, n int) []float64 {
	if n <= 1 {
		return []float64{t0}
	}
	times := make([]float64, n)
	step := horizon / float64(n-1)
	for i := range times {
		times[i] = t0 + float64(i)*step
	}
	times[n-1] = t0 + horizon
	return times
}

// New builds a scenario over a uniform grid starting at t=0.
func New(name string, p epidemic.Params, s0, i0, r0, horizon float64, points int) Scenario {
	return Scenario{
		Name:   name,
		Params: p,
		Init:   ode.State{s0, i0, r0},
		T0:     0,
		Times:  Uniform(0, horizon, points),
	}
}

// Validate fails fast on malformed scenarios so integrator resources are
// never consumed for them.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario: name must not be empty")
	}
	if err := sc.Params.Validate(); err != nil {
		return fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	if len(sc.Init) != 3 {
		return fmt.Errorf("scenario %q: initial state must have 3 compartments, got %d", sc.Name, len(sc.Init))
	}
	for i, v := range sc.Init {
		if v < 0 {
			return fmt.Errorf("scenario %q: %w: initial %s=%g must be >= 0",
				sc.Name, ode.ErrParameterBounds, epidemic.Compartments[i], v)
		}
	}
	if err := integrators.ValidateGrid(sc.T0, sc.Times); err != nil {
		return fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return nil
}

// Horizon is the span from t0 to the last report time.
func (sc Scenario) Horizon() float64 {
	if len(sc.Times) == 0 {
		return 0
	}
	return sc.Times[len(sc.Times)-1] - sc.T0
}
