// Package scheduler is the fitness oracle: given a ProblemInstance and an
// Assignment it deterministically computes a feasible schedule, its
// makespan, and a penalty for hard-constraint violations (spec.md §4.1).
// It never mutates the canonical instance — every evaluation works on its
// own deep copy of the tasks and machines.
package scheduler

import (
	"time"

	"github.com/metasched/metasched/pkg/types"
)

// MissingMachinePenalty is the fixed, large penalty applied when an
// assignment references a machine that does not exist in the instance —
// spec.md §4.1 "Edge cases": "treat as hard violation with a fixed large
// penalty (implementation-defined, ≥ memory-penalty magnitude)".
const MissingMachinePenalty = 1e12

// Schedule evaluates a single assignment against instance, returning the
// resulting Solution. It never mutates instance.
func Schedule(instance *types.ProblemInstance, assignment types.Assignment) types.Solution {
	start := nowMonotonic()
	sol := evaluate(instance, assignment)
	sol.ComputationTime = time.Since(start)
	return sol
}

// nowMonotonic returns the start time Schedule measures ComputationTime
// from.
func nowMonotonic() time.Time {
	return time.Now()
}

func evaluate(instance *types.ProblemInstance, assignment types.Assignment) types.Solution {
	if len(instance.Tasks) == 0 {
		return types.Solution{
			Assignment: assignment.Clone(),
			Makespan:   0,
			Fitness:    0,
			Feasible:   true,
		}
	}

	totalPenalty := 0.0
	hardViolation := false

	for _, taskID := range instance.TaskIDsSorted() {
		machineID, assigned := assignment[taskID]
		if !assigned {
			hardViolation = true
			totalPenalty += MissingMachinePenalty
			continue
		}
		machine, ok := instance.Machines[machineID]
		if !ok {
			hardViolation = true
			totalPenalty += MissingMachinePenalty
			continue
		}
		task := instance.Tasks[taskID]
		if task.MemoryRequirement > machine.AvailableMemory {
			hardViolation = true
			totalPenalty += (task.MemoryRequirement - machine.AvailableMemory) * instance.MemoryPenaltyCoefficient
		}
	}

	if hardViolation {
		return types.Solution{
			Assignment:   assignment.Clone(),
			Makespan:     types.PositiveInfinity(),
			TotalPenalty: totalPenalty,
			Fitness:      types.PositiveInfinity(),
			Feasible:     false,
		}
	}

	tasks := problemCloneTasks(instance)
	machines := problemCloneMachines(instance)

	taskSchedules, machineSchedules, makespan := listSchedule(instance, assignment, tasks, machines)

	return types.Solution{
		Assignment:       assignment.Clone(),
		Makespan:         makespan,
		TotalPenalty:     totalPenalty,
		Fitness:          makespan + totalPenalty,
		TaskSchedules:    taskSchedules,
		MachineSchedules: machineSchedules,
		Feasible:         true,
	}
}

// listSchedule is the main pass of spec.md §4.1: repeatedly pick every
// currently-ready task (all predecessors complete), assign it the
// earliest feasible slot on its designated machine, and advance.
func listSchedule(
	instance *types.ProblemInstance,
	assignment types.Assignment,
	tasks map[types.TaskID]types.Task,
	machines map[types.MachineID]types.VirtualMachine,
) (map[types.TaskID]types.TaskSchedule, map[types.MachineID]types.MachineSchedule, float64) {
	completed := make(map[types.TaskID]bool, len(tasks))
	ready := newReadyQueue(instance)

	taskSchedules := make(map[types.TaskID]types.TaskSchedule, len(tasks))
	maxCompletion := 0.0

	for len(completed) < len(tasks) {
		selected := ready.selectReady(completed, tasks)
		if len(selected) == 0 {
			// A validated instance is acyclic, so this is unreachable in
			// practice; guard against a caller bypassing problem.Validate.
			break
		}

		for _, taskID := range selected {
			task := tasks[taskID]
			machineID := assignment[taskID]
			machine := machines[machineID]

			predFinish := 0.0
			for _, pred := range task.PredecessorIDs {
				if ct := tasks[pred].CompletionTime; ct > predFinish {
					predFinish = ct
				}
			}

			startTime := machine.LastCompletionTime
			if predFinish > startTime {
				startTime = predFinish
			}

			execTime := executionTime(task.ComputationVolume, machine.Performance)
			completionTime := startTime + execTime

			task.StartTime = startTime
			task.CompletionTime = completionTime
			task.AssignedMachine = machineID
			tasks[taskID] = task

			machine.LastCompletionTime = completionTime
			machine.AssignedTasks = append(machine.AssignedTasks, taskID)
			machines[machineID] = machine

			taskSchedules[taskID] = types.TaskSchedule{
				TaskID:         taskID,
				MachineID:      machineID,
				StartTime:      startTime,
				CompletionTime: completionTime,
			}

			completed[taskID] = true
			if completionTime > maxCompletion {
				maxCompletion = completionTime
			}
		}
	}

	machineSchedules := make(map[types.MachineID]types.MachineSchedule, len(machines))
	for id, m := range machines {
		machineSchedules[id] = types.MachineSchedule{MachineID: id, Tasks: m.AssignedTasks}
	}

	return taskSchedules, machineSchedules, maxCompletion
}

// executionTime applies spec.md §4.1: "if performance ≤ 0, treat as +∞".
func executionTime(computationVolume, performance float64) float64 {
	if performance <= 0 {
		return types.PositiveInfinity()
	}
	return computationVolume / performance
}

func problemCloneTasks(instance *types.ProblemInstance) map[types.TaskID]types.Task {
	out := make(map[types.TaskID]types.Task, len(instance.Tasks))
	for id, t := range instance.Tasks {
		out[id] = t.Clone()
	}
	return out
}

func problemCloneMachines(instance *types.ProblemInstance) map[types.MachineID]types.VirtualMachine {
	out := make(map[types.MachineID]types.VirtualMachine, len(instance.Machines))
	for id, m := range instance.Machines {
		out[id] = m.Clone()
	}
	return out
}
