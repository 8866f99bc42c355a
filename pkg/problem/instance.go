// Package problem builds and validates ProblemInstance values: the task
// DAG, the machine pool, and the random-instance generator used to build
// benchmark instances for the search drivers.
package problem

import (
	"fmt"
	"math/rand"

	"github.com/metasched/metasched/pkg/types"
)

// New builds a ProblemInstance from explicit tasks and machines, filling
// in the default penalty coefficients (spec.md §3).
func New(tasks map[types.TaskID]types.Task, machines map[types.MachineID]types.VirtualMachine) *types.ProblemInstance {
	return &types.ProblemInstance{
		Tasks:                        tasks,
		Machines:                     machines,
		MemoryPenaltyCoefficient:     types.DefaultMemoryPenaltyCoefficient,
		PrecedencePenaltyCoefficient: types.DefaultPrecedencePenaltyCoefficient,
	}
}

// Validate reports whether the instance is well-formed: every predecessor
// id must reference an existing task, and the precedence graph must be
// acyclic (spec.md §3 invariant, §9 "cycle detection uses DFS with a
// recursion-stack set").
func Validate(instance *types.ProblemInstance) bool {
	return ValidateErr(instance) == nil
}

// ValidateErr is Validate with a diagnostic error, used by the
// orchestrator to surface InvalidInstance with detail.
func ValidateErr(instance *types.ProblemInstance) error {
	if instance == nil {
		return fmt.Errorf("instance is nil")
	}
	for id, t := range instance.Tasks {
		for _, pred := range t.PredecessorIDs {
			if _, ok := instance.Tasks[pred]; !ok {
				return fmt.Errorf("task %d references unknown predecessor %d", id, pred)
			}
		}
	}
	if cyc, ok := findCycle(instance); ok {
		return fmt.Errorf("precedence graph contains a cycle through task %d", cyc)
	}
	return nil
}

// findCycle runs iterative-recursion DFS with a recursion-stack set over
// the predecessor edges, returning the first task id found to be part of
// a cycle.
func findCycle(instance *types.ProblemInstance) (types.TaskID, bool) {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[types.TaskID]int, len(instance.Tasks))

	var visit func(id types.TaskID) (types.TaskID, bool)
	visit = func(id types.TaskID) (types.TaskID, bool) {
		state[id] = onStack
		for _, pred := range instance.Tasks[id].PredecessorIDs {
			switch state[pred] {
			case onStack:
				return pred, true
			case unvisited:
				if cyc, found := visit(pred); found {
					return cyc, true
				}
			}
		}
		state[id] = done
		return 0, false
	}

	for _, id := range instance.TaskIDsSorted() {
		if state[id] == unvisited {
			if cyc, found := visit(id); found {
				return cyc, true
			}
		}
	}
	return 0, false
}

// CloneTasks returns a deep copy of every task in the instance, keyed by
// id — the scheduler's private working set for one evaluation.
func CloneTasks(instance *types.ProblemInstance) map[types.TaskID]types.Task {
	out := make(map[types.TaskID]types.Task, len(instance.Tasks))
	for id, t := range instance.Tasks {
		out[id] = t.Clone()
	}
	return out
}

// CloneMachines returns a deep copy of every machine in the instance,
// keyed by id.
func CloneMachines(instance *types.ProblemInstance) map[types.MachineID]types.VirtualMachine {
	out := make(map[types.MachineID]types.VirtualMachine, len(instance.Machines))
	for id, m := range instance.Machines {
		out[id] = m.Clone()
	}
	return out
}

// RandomAssignment draws a uniformly random machine for every task in the
// instance, using rng — the seed for PSO/GA swarm/population initialization.
func RandomAssignment(instance *types.ProblemInstance, rng *rand.Rand) types.Assignment {
	machineIDs := instance.MachineIDsSorted()
	assignment := make(types.Assignment, len(instance.Tasks))
	for _, taskID := range instance.TaskIDsSorted() {
		assignment[taskID] = machineIDs[rng.Intn(len(machineIDs))]
	}
	return assignment
}
