// Package orchestrator drives a single optimization run through its
// lifecycle (spec.md §4.5): Idle -> Ready -> Running -> {Completed,
// Stopped} -> Ready, wrapping whichever search driver
// (pkg/pso.Driver or pkg/ga.Driver) the run was started with behind one
// capability-set interface, and emitting progress/completion events as
// it steps. No orchestrator operation moves a run into the Error status;
// a failed operation returns an error and leaves the status unchanged.
package orchestrator

import "errors"

// Sentinel errors returned by orchestrator operations. Callers should
// compare against these with errors.Is; wrapped context is added with
// fmt.Errorf("...: %w", ...) at the call site.
var (
	// ErrNotInitialized is returned by any operation that requires a
	// loaded ProblemInstance (Start, Reset) when none has been set.
	ErrNotInitialized = errors.New("orchestrator: no problem instance loaded")

	// ErrAlreadyRunning is returned by Start when a run is already in
	// the Running state.
	ErrAlreadyRunning = errors.New("orchestrator: run already in progress")

	// ErrInvalidInstance is returned when LoadInstance is given a
	// ProblemInstance that fails validation (a cycle, a dangling
	// predecessor reference).
	ErrInvalidInstance = errors.New("orchestrator: invalid problem instance")

	// ErrInvalidConfig is returned when Start is given an algorithm
	// config that fails its own Validate().
	ErrInvalidConfig = errors.New("orchestrator: invalid algorithm configuration")

	// ErrCancelled is returned by Run when its context has been
	// cancelled mid-flight.
	ErrCancelled = errors.New("orchestrator: run cancelled")

	// ErrEvaluationFailed names the case where every candidate in a
	// generation/iteration failed evaluation (all fitnesses are +Inf
	// from the panic-isolation path). No orchestrator operation returns
	// it; Step does not inspect candidate fitnesses.
	ErrEvaluationFailed = errors.New("orchestrator: all candidate evaluations failed")

	// ErrNotRunning is returned by Stop/Step when the run is not
	// currently in the Running state.
	ErrNotRunning = errors.New("orchestrator: no run in progress")

	// ErrExportFailed and ErrImportFailed name failures serializing or
	// deserializing a run's best solution; no code in this module
	// returns or wraps them.
	ErrExportFailed = errors.New("orchestrator: failed to export solution")
	ErrImportFailed = errors.New("orchestrator: failed to import solution")
)
