package problem

import (
	"fmt"
	"math/rand"

	"github.com/metasched/metasched/pkg/types"
)

// GenerateRandom builds a ProblemInstance with taskCount tasks and
// machineCount machines, following the construction rule of spec.md §4.6:
// each task i (1-indexed) draws a predecessor count in
// [0, min(MaxPredecessors, i-1)] and that many distinct predecessor ids
// from [1, i-1], which guarantees acyclicity by construction.
func GenerateRandom(taskCount, machineCount int, seed int64, cfg types.GenerationConfig) (*types.ProblemInstance, error) {
	if taskCount < 1 {
		return nil, fmt.Errorf("taskCount must be >= 1")
	}
	if machineCount < 1 {
		return nil, fmt.Errorf("machineCount must be >= 1")
	}

	rng := rand.New(rand.NewSource(seed))

	tasks := make(map[types.TaskID]types.Task, taskCount)
	for i := 1; i <= taskCount; i++ {
		id := types.TaskID(i)
		maxPreds := cfg.MaxPredecessors
		if maxPreds > i-1 {
			maxPreds = i - 1
		}
		predCount := 0
		if maxPreds > 0 {
			predCount = rng.Intn(maxPreds + 1)
		}

		predecessors := drawDistinctPredecessors(rng, i-1, predCount)

		tasks[id] = types.Task{
			ID:                id,
			ComputationVolume: uniform(rng, cfg.ComputationVolumeMin, cfg.ComputationVolumeMax),
			MemoryRequirement: uniform(rng, cfg.MemoryRequirementMin, cfg.MemoryRequirementMax),
			PredecessorIDs:    predecessors,
		}
	}

	machines := make(map[types.MachineID]types.VirtualMachine, machineCount)
	for i := 1; i <= machineCount; i++ {
		id := types.MachineID(i)
		machines[id] = types.VirtualMachine{
			ID:              id,
			Performance:     uniform(rng, cfg.MachinePerformanceMin, cfg.MachinePerformanceMax),
			AvailableMemory: uniform(rng, cfg.MachineMemoryMin, cfg.MachineMemoryMax),
		}
	}

	return New(tasks, machines), nil
}

// drawDistinctPredecessors draws count task ids uniformly from [1, upTo]
// without replacement, discarding duplicate draws (spec.md §4.6: "duplicates
// discarded"), returned in ascending order for deterministic serialization.
func drawDistinctPredecessors(rng *rand.Rand, upTo, count int) []types.TaskID {
	if upTo <= 0 || count <= 0 {
		return nil
	}
	seen := make(map[int]bool, count)
	result := make([]types.TaskID, 0, count)
	for len(result) < count && len(seen) < upTo {
		candidate := 1 + rng.Intn(upTo)
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		result = append(result, types.TaskID(candidate))
	}
	sortTaskIDsAsc(result)
	return result
}

func sortTaskIDsAsc(ids []types.TaskID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
