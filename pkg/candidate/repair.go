// Package candidate holds the repair operator spec.md §4.2 requires every
// driver run after mutating a candidate, and the helper for drawing a
// random alternative machine. The population-member types themselves
// live in the pso and ga packages.
package candidate

import (
	"math/rand"

	"github.com/metasched/metasched/pkg/types"
)

// Repair rewrites every task whose assigned machine lacks sufficient
// memory to a uniformly random machine drawn from the set of machines
// that do have sufficient memory for that task. If no such machine
// exists the task is left unchanged — the penalty path in pkg/scheduler
// will reflect the violation (spec.md §4.2, invariant I1/P9).
//
// Repair mutates assignment in place and is deterministic given rng.
func Repair(instance *types.ProblemInstance, assignment types.Assignment, rng *rand.Rand) {
	for _, taskID := range instance.TaskIDsSorted() {
		task, ok := instance.Tasks[taskID]
		if !ok {
			continue
		}
		currentMachineID, assigned := assignment[taskID]
		if assigned {
			if current, ok := instance.Machines[currentMachineID]; ok && current.AvailableMemory >= task.MemoryRequirement {
				continue
			}
		}

		candidates := feasibleMachines(instance, task)
		if len(candidates) == 0 {
			continue
		}
		assignment[taskID] = candidates[rng.Intn(len(candidates))]
	}
}

func feasibleMachines(instance *types.ProblemInstance, task types.Task) []types.MachineID {
	var feasible []types.MachineID
	for _, machineID := range instance.MachineIDsSorted() {
		if instance.Machines[machineID].AvailableMemory >= task.MemoryRequirement {
			feasible = append(feasible, machineID)
		}
	}
	return feasible
}

// RandomOtherMachine draws a uniformly random machine id different from
// current, used by both drivers' mutation/position-update steps
// ("draw a uniformly random machine id different from the current one
// (if more than one machine exists)", spec.md §4.3 step 4 and §4.4 step 3c).
// If the instance has only one machine, current is returned unchanged.
func RandomOtherMachine(instance *types.ProblemInstance, current types.MachineID, rng *rand.Rand) types.MachineID {
	ids := instance.MachineIDsSorted()
	if len(ids) <= 1 {
		return current
	}
	for {
		candidate := ids[rng.Intn(len(ids))]
		if candidate != current {
			return candidate
		}
	}
}
