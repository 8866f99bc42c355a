package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metasched/metasched/pkg/ga"
	"github.com/metasched/metasched/pkg/problem"
	"github.com/metasched/metasched/pkg/pso"
	"github.com/metasched/metasched/pkg/types"
)

// searchDriver is the capability set both pkg/pso.Driver and
// pkg/ga.Driver satisfy; the orchestrator steps whichever one a run was
// started with without knowing which algorithm it is.
type searchDriver interface {
	Start()
	Step()
	IsComplete() bool
	BestSolution() *types.Solution
	Stop()
	Iteration() int
	History() []float64
}

// Orchestrator owns the lifecycle of a single optimization run (spec.md
// §4.5): it holds the problem instance, the active search driver, and
// the run's status, and emits ProgressEvent/CompletionEvent as it steps.
type Orchestrator struct {
	logger *slog.Logger

	mu       sync.Mutex
	instance *types.ProblemInstance
	driver   searchDriver
	status   types.RunStatus
	runID    string
	algoKind types.AlgorithmKind
	started  time.Time

	progress  chan types.ProgressEvent
	completed chan types.CompletionEvent
}

// New builds an idle Orchestrator. progressBuf sizes the buffered
// progress-event channel so a slow consumer does not stall Step; pass 0
// for an unbuffered channel.
func New(logger *slog.Logger, progressBuf int) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:    logger,
		status:    types.StatusIdle,
		progress:  make(chan types.ProgressEvent, progressBuf),
		completed: make(chan types.CompletionEvent, 1),
	}
}

// Progress returns the channel ProgressEvents are published on.
func (o *Orchestrator) Progress() <-chan types.ProgressEvent { return o.progress }

// Completed returns the channel the run's single CompletionEvent is
// published on.
func (o *Orchestrator) Completed() <-chan types.CompletionEvent { return o.completed }

// Status returns the current lifecycle state.
func (o *Orchestrator) Status() types.RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// RunID returns the identifier of the current (or most recent) run.
func (o *Orchestrator) RunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

// LoadInstance validates and installs a problem instance, transitioning
// Idle/Completed/Stopped/Error -> Ready. It refuses to replace the
// instance of a Running orchestrator.
func (o *Orchestrator) LoadInstance(instance *types.ProblemInstance) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == types.StatusRunning {
		return ErrAlreadyRunning
	}
	if err := problem.ValidateErr(instance); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInstance, err)
	}

	o.instance = instance
	o.driver = nil
	o.status = types.StatusReady
	o.logger.Info("problem instance loaded", "task_count", len(instance.Tasks), "machine_count", len(instance.Machines))
	return nil
}

// GenerateAndLoad generates a random instance (spec.md §4.6) and loads
// it, for callers (CLI, API) that want a fresh problem without supplying
// one of their own.
func (o *Orchestrator) GenerateAndLoad(taskCount, machineCount int, seed int64, genConfig types.GenerationConfig) error {
	instance, err := problem.GenerateRandom(taskCount, machineCount, seed, genConfig)
	if err != nil {
		return fmt.Errorf("orchestrator: failed to generate instance: %w", err)
	}
	return o.LoadInstance(instance)
}

// Start selects and initializes a search driver for the loaded instance
// (spec.md §4.5 Ready -> Running) but does not step it; callers drive
// progress with Step (step mode) or Run (blocking to completion).
func (o *Orchestrator) Start(algo types.AlgorithmKind, psoConfig types.PSOConfig, gaConfig types.GAConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.instance == nil {
		return ErrNotInitialized
	}
	if o.status == types.StatusRunning {
		return ErrAlreadyRunning
	}

	switch algo {
	case types.AlgorithmPSO:
		if err := psoConfig.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		o.driver = pso.New(o.instance, psoConfig, o.logger)
	case types.AlgorithmGA:
		if err := gaConfig.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		o.driver = ga.New(o.instance, gaConfig, o.logger)
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, algo)
	}

	o.algoKind = algo
	o.runID = uuid.NewString()
	o.started = monotonicNow()
	o.driver.Start()
	o.status = types.StatusRunning
	o.logger.Info("run started", "run_id", o.runID, "algorithm", algo)
	return nil
}

// Step advances the active driver by exactly one iteration/generation
// and publishes the resulting ProgressEvent, transitioning to Completed
// if the driver's termination condition is now met (spec.md §4.5 "Step
// mode").
func (o *Orchestrator) Step() error {
	o.mu.Lock()
	if o.status != types.StatusRunning {
		o.mu.Unlock()
		return ErrNotRunning
	}
	driver := o.driver
	runID := o.runID
	o.mu.Unlock()

	driver.Step()

	best := driver.BestSolution()
	isComplete := driver.IsComplete()

	event := types.ProgressEvent{
		RunID:       runID,
		Iteration:   driver.Iteration(),
		BestSolution: best,
		IsComplete:  isComplete,
	}
	if best != nil {
		event.BestFitness = best.Fitness
	} else {
		event.BestFitness = types.PositiveInfinity()
	}
	o.publishProgress(event)

	if isComplete {
		o.finish(types.StatusCompleted)
	}
	return nil
}

// Run drives the active search to completion, publishing a
// ProgressEvent per iteration, and returns the final best solution. It
// honors ctx cancellation (spec.md §4.5 "Cancellation"), transitioning
// to Stopped rather than Completed if the context is cancelled first.
func (o *Orchestrator) Run(ctx context.Context) (*types.Solution, error) {
	for {
		select {
		case <-ctx.Done():
			o.mu.Lock()
			running := o.status == types.StatusRunning
			o.mu.Unlock()
			if running {
				_ = o.Stop()
			}
			return nil, ErrCancelled
		default:
		}

		o.mu.Lock()
		status := o.status
		o.mu.Unlock()
		if status != types.StatusRunning {
			break
		}

		if err := o.Step(); err != nil {
			return nil, err
		}

		o.mu.Lock()
		complete := o.status != types.StatusRunning
		o.mu.Unlock()
		if complete {
			break
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.driver == nil {
		return nil, ErrNotRunning
	}
	return o.driver.BestSolution(), nil
}

// Stop halts the active run (spec.md §4.5 Running -> Stopped).
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.status != types.StatusRunning {
		o.mu.Unlock()
		return ErrNotRunning
	}
	driver := o.driver
	o.mu.Unlock()

	driver.Stop()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishLocked(types.StatusStopped)
	return nil
}

// Reset returns a Completed/Stopped/Error orchestrator to Ready with its
// currently loaded instance, discarding the driver state so a new run
// can Start. It does not clear the loaded instance.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == types.StatusRunning {
		return ErrAlreadyRunning
	}
	if o.instance == nil {
		return ErrNotInitialized
	}
	o.driver = nil
	o.status = types.StatusReady
	return nil
}

// BestSolution returns the best solution known so far (valid during a
// Running, Completed or Stopped status).
func (o *Orchestrator) BestSolution() *types.Solution {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.driver == nil {
		return nil
	}
	return o.driver.BestSolution()
}

func (o *Orchestrator) finish(status types.RunStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishLocked(status)
}

func (o *Orchestrator) finishLocked(status types.RunStatus) {
	o.status = status
	var best *types.Solution
	totalIterations := 0
	if o.driver != nil {
		best = o.driver.BestSolution()
		totalIterations = o.driver.Iteration()
	}
	event := types.CompletionEvent{
		RunID:           o.runID,
		BestSolution:    best,
		TotalIterations: totalIterations,
		ComputationTime: monotonicNow().Sub(o.started),
		Status:          status,
	}
	o.logger.Info("run finished", "run_id", o.runID, "status", status, "iterations", totalIterations)
	select {
	case o.completed <- event:
	default:
	}
}

func (o *Orchestrator) publishProgress(event types.ProgressEvent) {
	select {
	case o.progress <- event:
	default:
		o.logger.Warn("progress channel full, dropping event", "run_id", event.RunID, "iteration", event.Iteration)
	}
}

func monotonicNow() time.Time { return time.Now() }
