// Package ga implements the generational Genetic Algorithm driver of
// spec.md §4.4: tournament selection, single-point crossover, mutation,
// elitism and aging, with an optional local-search refinement step,
// using pkg/scheduler as its fitness oracle.
package ga

import (
	"math/rand"

	"github.com/metasched/metasched/pkg/problem"
	"github.com/metasched/metasched/pkg/types"
)

// Individual is one population member (spec.md §3 "Individual (GA)"): a
// chromosome (an Assignment), its evaluated Solution, and its age in
// generations since creation.
type Individual struct {
	Chromosome types.Assignment
	Solution   types.Solution
	Age        int
}

func (ind Individual) clone() Individual {
	return Individual{
		Chromosome: ind.Chromosome.Clone(),
		Solution:   *ind.Solution.Clone(),
		Age:        ind.Age,
	}
}

func newIndividual(instance *types.ProblemInstance, rng *rand.Rand) Individual {
	return Individual{
		Chromosome: problem.RandomAssignment(instance, rng),
		Solution:   types.Solution{Fitness: types.PositiveInfinity()},
		Age:        0,
	}
}
