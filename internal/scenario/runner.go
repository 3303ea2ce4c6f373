package scenario

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/episim/internal/epidemic"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/ode"
)

// Outcome is the result of one scenario: either a trajectory or an error,
// never both.
type Outcome struct {
	Scenario   Scenario
	Trajectory *ode.Trajectory
	Drift      float64
	Err        error
}

// Batch aggregates per-scenario outcomes, in scenario order.
type Batch struct {
	Outcomes []Outcome
}

func (b *Batch) Failed() []Outcome {
	failed := make([]Outcome, 0)
	for _, o := range b.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

func (b *Batch) Find(name string) (Outcome, bool) {
	for _, o := range b.Outcomes {
		if o.Scenario.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Runner integrates a list of scenarios. A failure in one scenario is
// recorded against that scenario only; the rest of the batch still runs.
type Runner struct {
	opts integrators.Options
	log  *zap.Logger
}

func NewRunner(opts integrators.Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = log
	return &Runner{opts: opts, log: log}
}

// Run integrates each scenario in order.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) *Batch {
	batch := &Batch{Outcomes: make([]Outcome, len(scenarios))}
	for i, sc := range scenarios {
		batch.Outcomes[i] = r.runOne(ctx, sc)
	}
	return batch
}

// RunParallel integrates scenarios concurrently, one goroutine each.
// Scenarios share no mutable state; each gets its own model and solver.
func (r *Runner) RunParallel(ctx context.Context, scenarios []Scenario) *Batch {
	batch := &Batch{Outcomes: make([]Outcome, len(scenarios))}

	var wg sync.WaitGroup
	for i, sc := range scenarios {
		wg.Add(1)
		go func(idx int, sc Scenario) {
			defer wg.Done()
			batch.Outcomes[idx] = r.runOne(ctx, sc)
		}(i, sc)
	}
	wg.Wait()

	return batch
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) Outcome {
	out := Outcome{Scenario: sc}

	if err := sc.Validate(); err != nil {
		out.Err = err
		r.log.Warn("scenario rejected", zap.String("scenario", sc.Name), zap.Error(err))
		return out
	}

	model := epidemic.New(sc.Params)
	solver := integrators.NewSolver(r.opts)

	traj, err := solver.Solve(ctx, model, sc.Init, sc.T0, sc.Times)
	if err != nil {
		out.Err = err
		r.log.Warn("scenario failed", zap.String("scenario", sc.Name), zap.Error(err))
		return out
	}

	out.Trajectory = traj
	out.Drift = traj.Drift()
	r.log.Info("scenario complete",
		zap.String("scenario", sc.Name),
		zap.Int("points", traj.Len()),
		zap.Float64("drift", out.Drift),
	)
	return out
}
