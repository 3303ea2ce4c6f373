// Package ode provides core primitives for numerical integration of
// ordinary differential equations:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dx/dt = f(x, t))
//   - [Trajectory]: states sampled at requested report times
//
// Errors are sentinel values ([ErrStepTooSmall], [ErrMaxSteps], ...) so
// callers can branch with errors.Is; [SolveError] carries step context.
//
// # Example
//
//	model := epidemic.New(params)
//	solver := integrators.NewSolver(integrators.DefaultOptions())
//	traj, err := solver.Solve(ctx, model, x0, 0, times)
package ode
