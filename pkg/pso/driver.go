package pso

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/metasched/metasched/pkg/candidate"
	"github.com/metasched/metasched/pkg/scheduler"
	"github.com/metasched/metasched/pkg/types"
)

// Driver is the authoritative PSO step-mode service (spec.md §9 "Open
// questions": "PSOService and PsoService... the latter is authoritative"
// — this package keeps only the single, step-capable implementation).
// It satisfies the orchestrator's capability-set contract: Start, Step,
// IsComplete, BestSolution, Stop.
type Driver struct {
	instance *types.ProblemInstance
	config   types.PSOConfig
	logger   *slog.Logger

	rng *rand.Rand

	mu sync.Mutex

	particles []*Particle

	globalBestPosition types.Assignment
	globalBestFitness  float64
	globalBestSolution *types.Solution

	iteration      int
	noImprovement  int
	history        []float64
	averageHistory []float64

	started bool
}

// New builds a PSO driver over instance with the given config. It does
// not start the swarm — call Start (or let the orchestrator call it via
// the capability set) before the first Step.
func New(instance *types.ProblemInstance, config types.PSOConfig, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	seed := int64(1)
	if config.RandomSeed != nil {
		seed = *config.RandomSeed
	}
	return &Driver{
		instance: instance,
		config:   config,
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Start initializes the swarm (spec.md §4.3 "Initialization").
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.particles = make([]*Particle, d.config.SwarmSize)
	for i := range d.particles {
		d.particles[i] = newParticle(d.instance, d.rng)
	}
	d.globalBestPosition = d.particles[0].Position.Clone()
	d.globalBestFitness = types.PositiveInfinity()
	d.globalBestSolution = nil
	d.iteration = 0
	d.noImprovement = 0
	d.history = nil
	d.averageHistory = nil
	d.started = true

	d.logger.Debug("pso swarm initialized", "swarm_size", d.config.SwarmSize, "task_count", len(d.instance.Tasks))
}

// IsComplete reports whether the termination condition of spec.md §4.3
// has been reached: iteration >= MaxIterations OR no_improvement >=
// NoImprovementLimit.
func (d *Driver) IsComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isCompleteLocked()
}

func (d *Driver) isCompleteLocked() bool {
	return d.iteration >= d.config.MaxIterations || d.noImprovement >= d.config.NoImprovementLimit
}

// BestSolution returns a deep copy of the best-known solution, or nil if
// no evaluation has happened yet.
func (d *Driver) BestSolution() *types.Solution {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.globalBestSolution.Clone()
}

// Stop ends the search by exhausting the no-improvement budget; the swarm
// state is kept, and a stopped driver reports IsComplete() true.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.noImprovement = d.config.NoImprovementLimit
}

// Iteration returns the number of completed iterations.
func (d *Driver) Iteration() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.iteration
}

// AverageFitness returns the swarm-average fitness recorded by the most
// recent Step.
func (d *Driver) AverageFitness() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.averageHistory) == 0 {
		return types.PositiveInfinity()
	}
	return d.averageHistory[len(d.averageHistory)-1]
}

// Step advances the swarm by exactly one iteration (spec.md §4.3 "One
// iteration"). It is the orchestrator's unit of cooperative execution: a
// single call evaluates the whole swarm in parallel, merges personal and
// global bests under a lock, updates velocities and positions, and
// records history.
func (d *Driver) Step() {
	d.mu.Lock()
	positions := make([]types.Assignment, len(d.particles))
	for i, p := range d.particles {
		positions[i] = p.Position
	}
	instance := d.instance
	d.mu.Unlock()

	// Suspension point (a): all evaluations see the same previous-iteration
	// state, computed outside the lock so other goroutines may run.
	solutions := scheduler.ScheduleAll(instance, positions)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.mergeBests(solutions)
	d.updateVelocitiesAndPositions()
	d.recordHistory(solutions)

	d.iteration++
	if d.iteration%50 == 0 || d.isCompleteLocked() {
		d.logger.Debug("pso iteration", "iteration", d.iteration, "best_fitness", d.globalBestFitness, "no_improvement", d.noImprovement)
	}
}

// mergeBests implements spec.md §4.3 step 2: personal-best updates happen
// first (per particle), and only afterwards can a particle's solution
// update the global best — both protected by the same lock the caller
// already holds, satisfying the ordering guarantee of spec.md §5.
func (d *Driver) mergeBests(solutions []types.Solution) {
	improvedGlobal := false
	for i, p := range d.particles {
		sol := solutions[i]
		p.CurrentSolution = sol
		if sol.Fitness < p.BestFitness {
			p.BestFitness = sol.Fitness
			p.BestPosition = sol.Assignment.Clone()
			p.BestSolution = sol.Clone()
		}
		if p.BestFitness < d.globalBestFitness {
			d.globalBestFitness = p.BestFitness
			d.globalBestPosition = p.BestPosition.Clone()
			d.globalBestSolution = p.BestSolution.Clone()
			if d.globalBestSolution != nil {
				d.globalBestSolution.IterationFound = d.iteration
			}
			improvedGlobal = true
		}
	}
	if improvedGlobal {
		d.noImprovement = 0
	} else {
		d.noImprovement++
	}
}

// updateVelocitiesAndPositions implements spec.md §4.3 steps 3-4, run
// per particle in parallel (each particle's state is disjoint, so no
// lock is needed beyond the one the caller already holds for the shared
// global-best read).
func (d *Driver) updateVelocitiesAndPositions() {
	var wg sync.WaitGroup
	for i, p := range d.particles {
		wg.Add(1)
		go func(p *Particle, workerSeed int64) {
			defer wg.Done()
			workerRNG := rand.New(rand.NewSource(workerSeed))
			d.updateParticle(p, workerRNG)
		}(p, int64(d.iteration)*10007+int64(i))
	}
	wg.Wait()
}

func (d *Driver) updateParticle(p *Particle, rng *rand.Rand) {
	w := d.config.InertiaWeight
	c1 := d.config.CognitiveWeight
	c2 := d.config.SocialWeight

	for _, taskID := range d.instance.TaskIDsSorted() {
		cog := 0.0
		if p.BestPosition[taskID] != p.Position[taskID] {
			cog = 1.0
		}
		soc := 0.0
		if d.globalBestPosition[taskID] != p.Position[taskID] {
			soc = 1.0
		}
		r1, r2 := rng.Float64(), rng.Float64()

		v := w*p.Velocity[taskID] + c1*r1*cog + c2*r2*soc
		v = clamp01(v)
		p.Velocity[taskID] = v

		if rng.Float64() < v {
			p.Position[taskID] = candidate.RandomOtherMachine(d.instance, p.Position[taskID], rng)
		}
	}

	candidate.Repair(d.instance, p.Position, rng)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (d *Driver) recordHistory(solutions []types.Solution) {
	sum := 0.0
	finite := 0
	for _, sol := range solutions {
		if !math.IsInf(sol.Fitness, 1) {
			sum += sol.Fitness
			finite++
		}
	}
	avg := types.PositiveInfinity()
	if finite > 0 {
		avg = sum / float64(finite)
	}
	d.history = append(d.history, d.globalBestFitness)
	d.averageHistory = append(d.averageHistory, avg)
}

// History returns the recorded best-fitness-per-iteration series.
func (d *Driver) History() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.history...)
}
