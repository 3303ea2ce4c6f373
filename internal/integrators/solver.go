package integrators

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/episim/internal/ode"
)

// Options controls adaptive integration.
type Options struct {
	AbsTol      float64
	RelTol      float64
	InitialStep float64 // 0 means derive from the report span
	MinStep     float64
	MaxStep     float64 // 0 means unbounded
	MaxSteps    int
	Logger      *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		AbsTol:   1e-6,
		RelTol:   1e-6,
		MinStep:  1e-10,
		MaxSteps: 100000,
	}
}

// Solver advances an ode.System across a report-time grid with adaptive
// step-size control. A Solver is stateless between calls and safe to reuse.
type Solver struct {
	rk   *RK45
	opts Options
	log  *zap.Logger
}

func NewSolver(opts Options) *Solver {
	def := DefaultOptions()
	if opts.AbsTol <= 0 {
		opts.AbsTol = def.AbsTol
	}
	if opts.RelTol <= 0 {
		opts.RelTol = def.RelTol
	}
	if opts.MinStep <= 0 {
		opts.MinStep = def.MinStep
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Solver{rk: NewRK45(), opts: opts, log: log}
}

// ValidateGrid checks that the report grid is non-empty, starts at or after
// t0, and is strictly increasing.
func ValidateGrid(t0 float64, times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: empty", ode.ErrInvalidGrid)
	}
	if times[0] < t0 {
		return fmt.Errorf("%w: first report time %g before t0=%g", ode.ErrInvalidGrid, times[0], t0)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return fmt.Errorf("%w: not strictly increasing at index %d (%g <= %g)",
				ode.ErrInvalidGrid, i, times[i], times[i-1])
		}
	}
	return nil
}

// Solve integrates sys from x0 at t0 and reports the state at each requested
// time. Internal steps never overshoot a report time: the final sub-step
// before a report time is clipped to land on it exactly, and the pre-clip
// step size is resumed afterwards. State components are passed through
// unclamped; negative excursions diagnose the tolerance, they are not
// corrected here.
func (s *Solver) Solve(ctx context.Context, sys ode.System, x0 ode.State, t0 float64, times []float64) (*ode.Trajectory, error) {
	if err := ValidateGrid(t0, times); err != nil {
		return nil, err
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("initial state: %w", ode.ErrInvalidState)
	}

	traj := &ode.Trajectory{
		Times:  append([]float64(nil), times...),
		States: make([]ode.State, 0, len(times)),
	}

	x := x0.Clone()
	t := t0
	h := s.initialStep(t0, times)
	steps := 0

	for _, target := range times {
		for t < target {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if steps >= s.opts.MaxSteps {
				return nil, &ode.SolveError{Step: steps, Time: t, Dt: h, Wrapped: ode.ErrMaxSteps}
			}

			hTry := h
			clipped := false
			if hTry > target-t {
				hTry = target - t
				clipped = true
			}

			xNew, errEst := s.rk.Step(sys, x, t, hTry)
			steps++

			ratio := s.errorRatio(x, xNew, errEst)
			if ratio <= 1 {
				if clipped {
					t = target
				} else {
					t += hTry
					h = s.grow(hTry, ratio)
				}
				if s.opts.MaxStep > 0 && h > s.opts.MaxStep {
					h = s.opts.MaxStep
				}
				x = xNew
				continue
			}

			hNext := s.shrink(hTry, ratio)
			s.log.Debug("step rejected",
				zap.Float64("t", t),
				zap.Float64("dt", hTry),
				zap.Float64("err_ratio", ratio),
			)
			if hNext < s.opts.MinStep {
				return nil, &ode.SolveError{Step: steps, Time: t, Dt: hNext, Wrapped: ode.ErrStepTooSmall}
			}
			h = hNext
		}

		traj.States = append(traj.States, x.Clone())
	}

	return traj, nil
}

func (s *Solver) initialStep(t0 float64, times []float64) float64 {
	h := s.opts.InitialStep
	if h <= 0 {
		h = (times[len(times)-1] - t0) / 100
	}
	if h <= 0 {
		h = 1e-3
	}
	if s.opts.MaxStep > 0 && h > s.opts.MaxStep {
		h = s.opts.MaxStep
	}
	return h
}

// errorRatio is the mixed absolute/relative error norm: > 1 rejects the step.
func (s *Solver) errorRatio(x, xNew, errEst ode.State) float64 {
	ratio := 0.0
	for i := range errEst {
		scale := s.opts.AbsTol + s.opts.RelTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		r := math.Abs(errEst[i]) / scale
		if r > ratio {
			ratio = r
		}
	}
	if math.IsNaN(ratio) {
		return math.Inf(1)
	}
	return ratio
}

func (s *Solver) grow(h, ratio float64) float64 {
	if ratio <= 0 {
		return h * s.rk.maxScale
	}
	return h * math.Min(s.rk.maxScale, s.rk.safety*math.Pow(ratio, -0.2))
}

func (s *Solver) shrink(h, ratio float64) float64 {
	if math.IsInf(ratio, 1) {
		return h * s.rk.minScale
	}
	return h * math.Max(s.rk.minScale, s.rk.safety*math.Pow(ratio, -0.25))
}
