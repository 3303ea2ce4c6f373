// Package epidemic provides the SIR-with-vaccination compartment model.
//
// State is the ordered triple (s, i, r) of population fractions. With
// vaccination coverage P and birth/death rate pi, the dynamics are
//
//	ds/dt = (1-P)*pi - beta*s*i - pi*s
//	di/dt = beta*s*i - (gamma+pi)*i
//	dr/dt = P*pi + gamma*i - pi*r
//
// The derivative sum is pi*(1 - s - i - r): trajectories starting on the
// unit simplex stay on it up to integration error.
package epidemic

import (
	"fmt"

	"github.com/san-kum/episim/internal/ode"
)

// Compartments is the fixed output order of the state components.
var Compartments = [3]string{"s", "i", "r"}

// Params are the model rates. Immutable once a scenario is defined.
type Params struct {
	Beta     float64 `yaml:"beta" json:"beta"`         // transmission rate
	Gamma    float64 `yaml:"gamma" json:"gamma"`       // recovery rate
	Pi       float64 `yaml:"pi" json:"pi"`             // birth/death rate
	Coverage float64 `yaml:"coverage" json:"coverage"` // vaccination coverage P in [0,1]
}

func (p Params) Validate() error {
	if p.Beta < 0 {
		return fmt.Errorf("%w: beta=%g must be >= 0", ode.ErrParameterBounds, p.Beta)
	}
	if p.Gamma < 0 {
		return fmt.Errorf("%w: gamma=%g must be >= 0", ode.ErrParameterBounds, p.Gamma)
	}
	if p.Pi < 0 {
		return fmt.Errorf("%w: pi=%g must be >= 0", ode.ErrParameterBounds, p.Pi)
	}
	if p.Coverage < 0 || p.Coverage > 1 {
		return fmt.Errorf("%w: coverage=%g must be in [0,1]", ode.ErrParameterBounds, p.Coverage)
	}
	return nil
}

// R0 is the basic reproduction number beta/(gamma+pi).
func (p Params) R0() float64 {
	return p.Beta / (p.Gamma + p.Pi)
}

// Rv is the reproduction number under vaccination, (1-P)*R0. Values above 1
// mean the infection persists despite the coverage.
func (p Params) Rv() float64 {
	return (1 - p.Coverage) * p.R0()
}

// CriticalCoverage is the eradication threshold 1 - 1/R0.
func (p Params) CriticalCoverage() float64 {
	return 1 - 1/p.R0()
}

type SIRV struct {
	Params Params
}

func New(p Params) *SIRV {
	return &SIRV{Params: p}
}

func (m *SIRV) Dim() int { return 3 }

// Derive evaluates the model as-is; components outside [0,1] are not
// clamped. The system is autonomous, t is unused.
func (m *SIRV) Derive(x ode.State, _ float64) ode.State {
	s, i, r := x[0], x[1], x[2]
	p := m.Params

	ds := (1-p.Coverage)*p.Pi - p.Beta*s*i - p.Pi*s
	di := p.Beta*s*i - (p.Gamma+p.Pi)*i
	dr := p.Coverage*p.Pi + p.Gamma*i - p.Pi*r

	return ode.State{ds, di, dr}
}

// DiseaseFree is the equilibrium with no infection: (1-P, 0, P).
func (m *SIRV) DiseaseFree() ode.State {
	return ode.State{1 - m.Params.Coverage, 0, m.Params.Coverage}
}

// Endemic returns the equilibrium with positive infection, if it exists
// (Rv > 1).
func (m *SIRV) Endemic() (ode.State, bool) {
	p := m.Params
	sStar := (p.Gamma + p.Pi) / p.Beta
	iStar := p.Pi * ((1 - p.Coverage) - sStar) / (p.Beta * sStar)
	if iStar <= 0 {
		return nil, false
	}
	return ode.State{sStar, iStar, 1 - sStar - iStar}, true
}

func (m *SIRV) GetParams() map[string]float64 {
	return map[string]float64{
		"beta":     m.Params.Beta,
		"gamma":    m.Params.Gamma,
		"pi":       m.Params.Pi,
		"coverage": m.Params.Coverage,
	}
}

func (m *SIRV) SetParam(name string, value float64) error {
	switch name {
	case "beta":
		m.Params.Beta = value
	case "gamma":
		m.Params.Gamma = value
	case "pi":
		m.Params.Pi = value
	case "coverage":
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		m.Params.Coverage = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
