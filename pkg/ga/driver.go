package ga

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/metasched/metasched/pkg/candidate"
	"github.com/metasched/metasched/pkg/scheduler"
	"github.com/metasched/metasched/pkg/types"
)

// Driver is the generational GA step-mode service. It satisfies the same
// capability set pkg/pso.Driver does (Start, Step, IsComplete,
// BestSolution, Stop) so the orchestrator can drive either algorithm
// through one interface.
type Driver struct {
	instance *types.ProblemInstance
	config   types.GAConfig
	logger   *slog.Logger

	rng *rand.Rand

	mu sync.Mutex

	population []Individual

	globalBest    *types.Solution
	globalBestFit float64

	iteration     int
	noImprovement int
	history       []float64

	started bool
}

// New builds a GA driver over instance with the given config.
func New(instance *types.ProblemInstance, config types.GAConfig, logger *slog.Logger) *Driver {
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

// Start initializes the population (spec.md §4.4 "Initialization").
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.population = make([]Individual, d.config.PopulationSize)
	for i := range d.population {
		d.population[i] = newIndividual(d.instance, d.rng)
	}
	d.globalBest = nil
	d.globalBestFit = types.PositiveInfinity()
	d.iteration = 0
	d.noImprovement = 0
	d.history = nil
	d.started = true

	d.logger.Debug("ga population initialized", "population_size", d.config.PopulationSize, "task_count", len(d.instance.Tasks))
}

// IsComplete reports the termination condition of spec.md §4.4:
// generation >= MaxGenerations OR no_improvement >= NoImprovementLimit.
func (d *Driver) IsComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isCompleteLocked()
}

func (d *Driver) isCompleteLocked() bool {
	return d.iteration >= d.config.MaxGenerations || d.noImprovement >= d.config.NoImprovementLimit
}

// BestSolution returns a deep copy of the best-known solution.
func (d *Driver) BestSolution() *types.Solution {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.globalBest.Clone()
}

// Stop forces completion on the next IsComplete check.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.noImprovement = d.config.NoImprovementLimit
}

// Iteration returns the number of completed generations.
func (d *Driver) Iteration() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.iteration
}

// History returns the recorded best-fitness-per-generation series.
func (d *Driver) History() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.history...)
}

// Step advances the population by exactly one generation (spec.md §4.4
// "One generation"): evaluate, update the global best and append it to
// the history, keep the elites, breed the remaining children via
// tournament selection, crossover and mutation, optionally run local
// search on the children, then age every individual of the new
// population.
func (d *Driver) Step() {
	d.mu.Lock()
	chromosomes := make([]types.Assignment, len(d.population))
	for i, ind := range d.population {
		chromosomes[i] = ind.Chromosome
	}
	instance := d.instance
	d.mu.Unlock()

	solutions := scheduler.ScheduleAll(instance, chromosomes)

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.population {
		d.population[i].Solution = solutions[i]
	}
	d.updateGlobalBest()
	d.history = append(d.history, d.globalBestFit)

	elites := d.selectElites()
	children := d.breed()

	if d.config.LocalSearch {
		for i := range children {
			LocalSearch(d.instance, &children[i], d.rng, d.config.LocalSearchMaxSweeps)
		}
	}

	next := append(elites, children...)
	for i := range next {
		next[i].Age++
	}
	d.population = next[:d.config.PopulationSize]

	d.iteration++
	if d.iteration%50 == 0 || d.isCompleteLocked() {
		d.logger.Debug("ga generation", "generation", d.iteration, "best_fitness", d.globalBestFit, "no_improvement", d.noImprovement)
	}
}

func (d *Driver) updateGlobalBest() {
	improved := false
	for i := range d.population {
		sol := d.population[i].Solution
		if sol.Fitness < d.globalBestFit {
			d.globalBestFit = sol.Fitness
			d.globalBest = sol.Clone()
			d.globalBest.IterationFound = d.iteration
			improved = true
		}
	}
	if improved {
		d.noImprovement = 0
	} else {
		d.noImprovement++
	}
}

// selectElites copies the EliteRatio-fraction of fittest individuals
// unchanged into the next generation (spec.md §4.4 step "Elitism").
func (d *Driver) selectElites() []Individual {
	ranked := append([]Individual(nil), d.population...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Solution.Fitness < ranked[j].Solution.Fitness })

	eliteCount := int(float64(d.config.PopulationSize) * d.config.EliteRatio)
	if eliteCount > len(ranked) {
		eliteCount = len(ranked)
	}
	elites := make([]Individual, eliteCount)
	for i := 0; i < eliteCount; i++ {
		elites[i] = ranked[i].clone()
	}
	return elites
}

// breed fills the remainder of the next generation via tournament
// selection, single-point crossover and mutation (spec.md §4.4 steps
// "Selection", "Crossover", "Mutation").
func (d *Driver) breed() []Individual {
	need := d.config.PopulationSize - int(float64(d.config.PopulationSize)*d.config.EliteRatio)
	if need < 0 {
		need = 0
	}
	children := make([]Individual, 0, need)
	taskIDs := d.instance.TaskIDsSorted()

	for len(children) < need {
		parentA := d.tournamentSelect()
		parentB := d.tournamentSelect()

		childChromosome := parentA.Chromosome.Clone()
		if d.rng.Float64() < d.config.CrossoverRate {
			childChromosome = crossover(parentA.Chromosome, parentB.Chromosome, taskIDs, d.rng)
		}

		if d.rng.Float64() < d.config.MutationRate {
			mutate(d.instance, childChromosome, taskIDs, d.rng)
		}
		candidate.Repair(d.instance, childChromosome, d.rng)

		children = append(children, Individual{Chromosome: childChromosome, Solution: types.Solution{Fitness: types.PositiveInfinity()}})
	}
	return children
}

// tournamentSelect draws TournamentSize individuals uniformly at random
// (with replacement) and returns the fittest among them, skipping any
// that have aged out (spec.md §4.4 "Selection" / "Aging"). If every
// drawn candidate has aged out, the fittest of them is still returned so
// selection never stalls.
func (d *Driver) tournamentSelect() Individual {
	best := d.population[d.rng.Intn(len(d.population))]
	bestEligible := best.Age < d.config.MaxAge
	for i := 1; i < d.config.TournamentSize; i++ {
		challenger := d.population[d.rng.Intn(len(d.population))]
		challengerEligible := challenger.Age < d.config.MaxAge
		switch {
		case challengerEligible && !bestEligible:
			best, bestEligible = challenger, true
		case challengerEligible == bestEligible && challenger.Solution.Fitness < best.Solution.Fitness:
			best = challenger
		}
	}
	return best
}

// crossover produces a child chromosome via single-point crossover over
// the ascending task-id order: tasks before the cut point inherit from a,
// tasks at or after it from b (spec.md §4.4 "Crossover").
func crossover(a, b types.Assignment, taskIDs []types.TaskID, rng *rand.Rand) types.Assignment {
	if len(taskIDs) == 0 {
		return types.Assignment{}
	}
	cut := rng.Intn(len(taskIDs))
	child := make(types.Assignment, len(taskIDs))
	for i, taskID := range taskIDs {
		if i < cut {
			child[taskID] = a[taskID]
		} else {
			child[taskID] = b[taskID]
		}
	}
	return child
}

// mutate reassigns one uniformly random task to a different machine
// (spec.md §4.4 "Mutation").
func mutate(instance *types.ProblemInstance, chromosome types.Assignment, taskIDs []types.TaskID, rng *rand.Rand) {
	if len(taskIDs) == 0 {
		return
	}
	taskID := taskIDs[rng.Intn(len(taskIDs))]
	chromosome[taskID] = candidate.RandomOtherMachine(instance, chromosome[taskID], rng)
}
