package ode

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Sum() float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

// System is a first-order ODE: dx/dt = Derive(x, t).
type System interface {
	Derive(x State, t float64) State
	Dim() int
}

// Trajectory holds the state at each requested report time, in report order.
type Trajectory struct {
	Times  []float64
	States []State
}

func (tr *Trajectory) Len() int {
	return len(tr.Times)
}

func (tr *Trajectory) At(i int) (float64, State) {
	return tr.Times[i], tr.States[i]
}

// Series extracts one state component across the whole trajectory.
func (tr *Trajectory) Series(idx int) []float64 {
	out := make([]float64, len(tr.States))
	for i, x := range tr.States {
		out[i] = x[idx]
	}
	return out
}

// Drift reports the maximum deviation of the component sum from its initial
// value. For models whose derivatives sum to zero this measures accumulated
// integration error.
func (tr *Trajectory) Drift() float64 {
	if len(tr.States) == 0 {
		return 0
	}
	base := tr.States[0].Sum()
	drift := 0.0
	for _, x := range tr.States[1:] {
		if d := math.Abs(x.Sum() - base); d > drift {
			drift = d
		}
	}
	return drift
}
