package ga

import (
	"math/rand"

	"github.com/metasched/metasched/pkg/scheduler"
	"github.com/metasched/metasched/pkg/types"
)

// LocalSearch refines one individual in place via hill climbing over
// single-task machine reassignments: each sweep tries one random
// (task, machine) move per task and keeps it only if it strictly
// improves fitness. It is off by default (GAConfig.LocalSearch) and, when
// enabled, runs for at most maxSweeps sweeps or until a full sweep makes
// no improving move.
func LocalSearch(instance *types.ProblemInstance, ind *Individual, rng *rand.Rand, maxSweeps int) {
	if maxSweeps <= 0 {
		return
	}
	current := ind.Chromosome.Clone()
	currentSol := scheduler.Schedule(instance, current)

	taskIDs := instance.TaskIDsSorted()
	machineIDs := instance.MachineIDsSorted()
	if len(taskIDs) == 0 || len(machineIDs) == 0 {
		return
	}

	for sweep := 0; sweep < maxSweeps; sweep++ {
		improvedThisSweep := false
		for _, taskID := range taskIDs {
			candidateMachine := machineIDs[rng.Intn(len(machineIDs))]
			if candidateMachine == current[taskID] {
				continue
			}
			trial := current.Clone()
			trial[taskID] = candidateMachine
			trialSol := scheduler.Schedule(instance, trial)
			if trialSol.Fitness < currentSol.Fitness {
				current = trial
				currentSol = trialSol
				improvedThisSweep = true
			}
		}
		if !improvedThisSweep {
			break
		}
	}

	ind.Chromosome = current
	ind.Solution = currentSol
}
