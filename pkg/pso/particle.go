// Package pso implements the discrete Particle Swarm Optimizer driver of
// spec.md §4.3: swarm init, velocity/position update, and personal/global
// best tracking, using pkg/scheduler as its fitness oracle.
package pso

import (
	"math/rand"

	"github.com/metasched/metasched/pkg/problem"
	"github.com/metasched/metasched/pkg/types"
)

// Particle is one swarm member (spec.md §3 "Particle (PSO)"): its current
// position (an Assignment), a per-task velocity in [0,1], and its
// personal-best memory.
type Particle struct {
	Position types.Assignment
	Velocity map[types.TaskID]float64

	BestPosition types.Assignment
	BestFitness  float64

	CurrentSolution types.Solution
	BestSolution    *types.Solution
}

func newParticle(instance *types.ProblemInstance, rng *rand.Rand) *Particle {
	position := problem.RandomAssignment(instance, rng)
	velocity := make(map[types.TaskID]float64, len(instance.Tasks))
	for _, taskID := range instance.TaskIDsSorted() {
		velocity[taskID] = rng.Float64()
	}
	return &Particle{
		Position:     position,
		Velocity:     velocity,
		BestPosition: position.Clone(),
		BestFitness:  types.PositiveInfinity(),
	}
}
