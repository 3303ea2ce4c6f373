package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/episim/internal/ode"
)

type countingSystem struct {
	inner ode.System
	calls int
}

func (c *countingSystem) Dim() int { return c.inner.Dim() }

func (c *countingSystem) Derive(x ode.State, t float64) ode.State {
	c.calls++
	return c.inner.Derive(x, t)
}

// stiffOscillator forces perpetual step rejection at coarse minimum steps.
type stiffOscillator struct{}

func (stiffOscillator) Dim() int { return 1 }

func (stiffOscillator) Derive(x ode.State, t float64) ode.State {
	return ode.State{1e9 * math.Cos(1e9*t)}
}

func uniformGrid(t0, horizon float64, n int) []float64 {
	times := make([]float64, n)
	step := horizon / float64(n-1)
	for i := range times {
		times[i] = t0 + float64(i)*step
	}
	return times
}

func TestSolve_ExponentialDecay(t *testing.T) {
	s := NewSolver(DefaultOptions())
	times := uniformGrid(0, 10, 101)

	traj, err := s.Solve(context.Background(), &expDecay{}, ode.State{1.0}, 0, times)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	for i, tt := range traj.Times {
		exact := math.Exp(-tt)
		if math.Abs(traj.States[i][0]-exact) > 1e-5 {
			t.Fatalf("t=%.2f: got %.8f, expected %.8f", tt, traj.States[i][0], exact)
		}
	}
}

func TestSolve_ExactReportTimes(t *testing.T) {
	s := NewSolver(DefaultOptions())
	// Irregular grid: internal steps must clip to land on each point.
	times := []float64{0, 0.1, 0.33333, 1.0, 2.71828, 9.5}

	traj, err := s.Solve(context.Background(), &harmonicOscillator{}, ode.State{1.0, 0.0}, 0, times)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if len(traj.Times) != len(times) || len(traj.States) != len(times) {
		t.Fatalf("expected %d report points, got %d times / %d states",
			len(times), len(traj.Times), len(traj.States))
	}
	for i := range times {
		if traj.Times[i] != times[i] {
			t.Errorf("report time %d: got %v, want %v", i, traj.Times[i], times[i])
		}
	}

	// Accuracy at the final, clipped report time.
	last := traj.States[len(traj.States)-1]
	if math.Abs(last[0]-math.Cos(9.5)) > 1e-4 {
		t.Errorf("final state off: got %.8f, expected %.8f", last[0], math.Cos(9.5))
	}
}

func TestSolve_SinglePointGrid(t *testing.T) {
	s := NewSolver(DefaultOptions())
	sys := &countingSystem{inner: &expDecay{}}
	x0 := ode.State{0.7}

	traj, err := s.Solve(context.Background(), sys, x0, 0, []float64{0})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if traj.Len() != 1 || traj.States[0][0] != 0.7 {
		t.Errorf("expected initial state back unchanged, got %v", traj.States)
	}
	if sys.calls != 0 {
		t.Errorf("expected no derivative evaluations, got %d", sys.calls)
	}
}

func TestSolve_InvalidGrid(t *testing.T) {
	s := NewSolver(DefaultOptions())

	tests := []struct {
		name  string
		t0    float64
		times []float64
	}{
		{"empty", 0, []float64{}},
		{"first before t0", 1.0, []float64{0.5, 2.0}},
		{"repeated", 0, []float64{0, 1, 1, 2}},
		{"decreasing", 0, []float64{0, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &countingSystem{inner: &expDecay{}}
			_, err := s.Solve(context.Background(), sys, ode.State{1.0}, tt.t0, tt.times)
			if !errors.Is(err, ode.ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
			if sys.calls != 0 {
				t.Errorf("validation must not evaluate derivatives, got %d calls", sys.calls)
			}
		})
	}
}

func TestSolve_MaxStepsExceeded(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSteps = 3
	s := NewSolver(opts)

	_, err := s.Solve(context.Background(), &harmonicOscillator{}, ode.State{1.0, 0.0}, 0, uniformGrid(0, 10, 101))
	if !errors.Is(err, ode.ErrMaxSteps) {
		t.Errorf("expected ErrMaxSteps, got %v", err)
	}

	var solveErr *ode.SolveError
	if !errors.As(err, &solveErr) {
		t.Fatalf("expected SolveError, got %T", err)
	}
	if solveErr.Step != 3 {
		t.Errorf("expected failure at step 3, got %d", solveErr.Step)
	}
}

func TestSolve_StepSizeUnderflow(t *testing.T) {
	opts := DefaultOptions()
	opts.MinStep = 1e-4
	opts.InitialStep = 0.1
	s := NewSolver(opts)

	_, err := s.Solve(context.Background(), stiffOscillator{}, ode.State{0.0}, 0, []float64{0, 1})
	if !errors.Is(err, ode.ErrStepTooSmall) {
		t.Errorf("expected ErrStepTooSmall, got %v", err)
	}
}

func TestSolve_ContextCanceled(t *testing.T) {
	s := NewSolver(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Solve(ctx, &harmonicOscillator{}, ode.State{1.0, 0.0}, 0, uniformGrid(0, 10, 101))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSolve_InvalidInitialState(t *testing.T) {
	s := NewSolver(DefaultOptions())

	_, err := s.Solve(context.Background(), &expDecay{}, ode.State{math.NaN()}, 0, []float64{0, 1})
	if !errors.Is(err, ode.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSolve_MaxStepHonored(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxStep = 0.01
	opts.MaxSteps = 50
	s := NewSolver(opts)

	// 1.0 of span at <= 0.01 per step needs at least 100 steps.
	_, err := s.Solve(context.Background(), &expDecay{}, ode.State{1.0}, 0, []float64{0, 1})
	if !errors.Is(err, ode.ErrMaxSteps) {
		t.Errorf("expected ErrMaxSteps under tight MaxStep, got %v", err)
	}
}
