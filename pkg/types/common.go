package types

import "time"

// AlgorithmKind selects which search driver the orchestrator runs.
type AlgorithmKind string

const (
	AlgorithmPSO AlgorithmKind = "pso"
	AlgorithmGA  AlgorithmKind = "ga"
)

// ErrInvalidConfig is a small string error so PSOConfig/GAConfig.Validate
// read the same way; pkg/orchestrator wraps the result in the exported
// InvalidConfig sentinel.
type ErrInvalidConfig string

func (e ErrInvalidConfig) Error() string { return string(e) }

// PSOConfig holds the tunable parameters of the particle swarm driver.
// Field names mirror the persistence/API naming of spec.md §6.
type PSOConfig struct {
	SwarmSize          int     `json:"swarmSize" yaml:"swarmSize"`
	MaxIterations      int     `json:"maxIterations" yaml:"maxIterations"`
	InertiaWeight      float64 `json:"inertiaWeight" yaml:"inertiaWeight"`
	CognitiveWeight    float64 `json:"cognitiveWeight" yaml:"cognitiveWeight"`
	SocialWeight       float64 `json:"socialWeight" yaml:"socialWeight"`
	NoImprovementLimit int     `json:"noImprovementLimit" yaml:"noImprovementLimit"`
	RandomSeed         *int64  `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
}

// DefaultPSOConfig returns the spec's default PSO parameters.
func DefaultPSOConfig() PSOConfig {
	return PSOConfig{
		SwarmSize:          50,
		MaxIterations:      500,
		InertiaWeight:      0.7,
		CognitiveWeight:    1.5,
		SocialWeight:       1.5,
		NoImprovementLimit: 50,
	}
}

// Validate checks the PSO config against the ranges enumerated in spec.md §6.
func (c PSOConfig) Validate() error {
	switch {
	case c.SwarmSize < 1:
		return ErrInvalidConfig("swarmSize must be >= 1")
	case c.MaxIterations < 1:
		return ErrInvalidConfig("maxIterations must be >= 1")
	case c.InertiaWeight < 0 || c.InertiaWeight > 1:
		return ErrInvalidConfig("inertiaWeight must be in [0,1]")
	case c.CognitiveWeight < 0:
		return ErrInvalidConfig("cognitiveWeight must be >= 0")
	case c.SocialWeight < 0:
		return ErrInvalidConfig("socialWeight must be >= 0")
	case c.NoImprovementLimit < 1:
		return ErrInvalidConfig("noImprovementLimit must be >= 1")
	}
	return nil
}

// GAConfig holds the tunable parameters of the genetic algorithm driver.
type GAConfig struct {
	PopulationSize     int     `json:"populationSize" yaml:"populationSize"`
	MaxGenerations     int     `json:"maxGenerations" yaml:"maxGenerations"`
	CrossoverRate      float64 `json:"crossoverRate" yaml:"crossoverRate"`
	MutationRate       float64 `json:"mutationRate" yaml:"mutationRate"`
	EliteRatio         float64 `json:"eliteRatio" yaml:"eliteRatio"`
	TournamentSize     int     `json:"tournamentSize" yaml:"tournamentSize"`
	MaxAge             int     `json:"maxAge" yaml:"maxAge"`
	NoImprovementLimit int     `json:"noImprovementLimit" yaml:"noImprovementLimit"`
	RandomSeed         *int64  `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`

	// LocalSearch enables the optional per-task reassignment sweep
	// (spec.md §4.4), run on every generation's bred children.
	LocalSearch          bool `json:"localSearch" yaml:"localSearch"`
	LocalSearchMaxSweeps int  `json:"localSearchMaxSweeps" yaml:"localSearchMaxSweeps"`
}

// DefaultGAConfig returns the spec's default GA parameters.
func DefaultGAConfig() GAConfig {
	return GAConfig{
		PopulationSize:       100,
		MaxGenerations:       500,
		CrossoverRate:        0.8,
		MutationRate:         0.1,
		EliteRatio:           0.1,
		TournamentSize:       3,
		MaxAge:               50,
		NoImprovementLimit:   50,
		LocalSearch:          false,
		LocalSearchMaxSweeps: 10,
	}
}

// Validate checks the GA config against the ranges enumerated in spec.md §6.
func (c GAConfig) Validate() error {
	switch {
	case c.PopulationSize < 2:
		return ErrInvalidConfig("populationSize must be >= 2")
	case c.MaxGenerations < 1:
		return ErrInvalidConfig("maxGenerations must be >= 1")
	case c.CrossoverRate < 0 || c.CrossoverRate > 1:
		return ErrInvalidConfig("crossoverRate must be in [0,1]")
	case c.MutationRate < 0 || c.MutationRate > 1:
		return ErrInvalidConfig("mutationRate must be in [0,1]")
	case c.EliteRatio < 0 || c.EliteRatio >= 1:
		return ErrInvalidConfig("eliteRatio must be in [0,1)")
	case c.TournamentSize < 1 || c.TournamentSize > c.PopulationSize:
		return ErrInvalidConfig("tournamentSize must be in [1, populationSize]")
	case c.MaxAge < 0:
		return ErrInvalidConfig("maxAge must be >= 0")
	case c.NoImprovementLimit < 1:
		return ErrInvalidConfig("noImprovementLimit must be >= 1")
	}
	return nil
}

// GenerationConfig parameterizes the random instance generator of
// spec.md §4.6.
type GenerationConfig struct {
	ComputationVolumeMin  float64 `json:"computationVolumeMin" yaml:"computationVolumeMin"`
	ComputationVolumeMax  float64 `json:"computationVolumeMax" yaml:"computationVolumeMax"`
	MemoryRequirementMin  float64 `json:"memoryRequirementMin" yaml:"memoryRequirementMin"`
	MemoryRequirementMax  float64 `json:"memoryRequirementMax" yaml:"memoryRequirementMax"`
	MaxPredecessors       int     `json:"maxPredecessors" yaml:"maxPredecessors"`
	MachinePerformanceMin float64 `json:"machinePerformanceMin" yaml:"machinePerformanceMin"`
	MachinePerformanceMax float64 `json:"machinePerformanceMax" yaml:"machinePerformanceMax"`
	MachineMemoryMin      float64 `json:"machineMemoryMin" yaml:"machineMemoryMin"`
	MachineMemoryMax      float64 `json:"machineMemoryMax" yaml:"machineMemoryMax"`
}

// DefaultGenerationConfig returns the spec's default generation ranges.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		ComputationVolumeMin:  10,
		ComputationVolumeMax:  100,
		MemoryRequirementMin:  1,
		MemoryRequirementMax:  20,
		MaxPredecessors:       3,
		MachinePerformanceMin: 5,
		MachinePerformanceMax: 25,
		MachineMemoryMin:      10,
		MachineMemoryMax:      30,
	}
}

// RunStatus is the orchestrator's lifecycle state (spec.md §4.5).
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusReady     RunStatus = "ready"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusStopped   RunStatus = "stopped"
	StatusError     RunStatus = "error"
)

// ProgressEvent is emitted by the orchestrator once per iteration/generation
// (spec.md §4.5 "Events emitted").
type ProgressEvent struct {
	RunID          string    `json:"runId"`
	Iteration      int       `json:"iteration"`
	BestSolution   *Solution `json:"bestSolution"`
	BestFitness    float64   `json:"bestFitness"`
	// AverageFitness is not filled in by the orchestrator's Step and
	// is always 0 in the events it publishes.
	AverageFitness float64   `json:"averageFitness"`
	IsComplete     bool      `json:"isComplete"`
}

// CompletionEvent is emitted exactly once when a run finishes or is
// stopped.
type CompletionEvent struct {
	RunID           string        `json:"runId"`
	BestSolution    *Solution     `json:"bestSolution"`
	TotalIterations int           `json:"totalIterations"`
	ComputationTime time.Duration `json:"computationTime"`
	Status          RunStatus     `json:"status"`
}

// HealthStatus is the liveness payload served by the thin API's /health
// endpoint.
type HealthStatus struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}
