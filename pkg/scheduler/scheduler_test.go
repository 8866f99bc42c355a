package scheduler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metasched/metasched/pkg/types"
)

func instanceWith(tasks map[types.TaskID]types.Task, machines map[types.MachineID]types.VirtualMachine) *types.ProblemInstance {
	return &types.ProblemInstance{
		Tasks:                        tasks,
		Machines:                     machines,
		MemoryPenaltyCoefficient:     types.DefaultMemoryPenaltyCoefficient,
		PrecedencePenaltyCoefficient: types.DefaultPrecedencePenaltyCoefficient,
	}
}

// S1: single task, single machine.
func TestScheduleSingleTask(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 5}},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 10}},
	)
	sol := Schedule(instance, types.Assignment{1: 1})
	assert.Equal(t, 1.0, sol.Makespan)
	assert.Equal(t, 0.0, sol.TotalPenalty)
	assert.True(t, sol.Feasible)
}

// S2: chain precedence A->B->C on one machine.
func TestScheduleChainPrecedence(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 20, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
			3: {ID: 3, ComputationVolume: 30, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{2}},
		},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 10}},
	)
	sol := Schedule(instance, types.Assignment{1: 1, 2: 1, 3: 1})

	require.Contains(t, sol.TaskSchedules, types.TaskID(1))
	assert.Equal(t, 0.0, sol.TaskSchedules[1].StartTime)
	assert.Equal(t, 1.0, sol.TaskSchedules[2].StartTime)
	assert.Equal(t, 3.0, sol.TaskSchedules[3].StartTime)
	assert.Equal(t, 6.0, sol.Makespan)
}

// S3: two machines, two independent tasks.
func TestScheduleTwoIndependentTasksTwoMachines(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 10, MemoryRequirement: 1},
		},
		map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 10, AvailableMemory: 10},
			2: {ID: 2, Performance: 5, AvailableMemory: 10},
		},
	)
	sol := Schedule(instance, types.Assignment{1: 1, 2: 2})
	assert.Equal(t, 2.0, sol.Makespan)
}

// S4: memory violation.
func TestScheduleMemoryViolation(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 100}},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 1}},
	)
	sol := Schedule(instance, types.Assignment{1: 1})
	assert.True(t, sol.TotalPenalty >= 99*1000)
	assert.False(t, sol.Feasible)
	assert.True(t, math.IsInf(sol.Makespan, 1))
	assert.True(t, math.IsInf(sol.Fitness, 1))
}

// S5: fork/join DAG.
func TestScheduleForkJoin(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 10, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
			3: {ID: 3, ComputationVolume: 10, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
			4: {ID: 4, ComputationVolume: 10, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{2, 3}},
		},
		map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 10, AvailableMemory: 10},
			2: {ID: 2, Performance: 10, AvailableMemory: 10},
		},
	)
	sol := Schedule(instance, types.Assignment{1: 1, 2: 1, 3: 2, 4: 1})

	assert.Equal(t, 0.0, sol.TaskSchedules[1].StartTime)
	assert.GreaterOrEqual(t, sol.TaskSchedules[2].StartTime, 1.0)
	assert.GreaterOrEqual(t, sol.TaskSchedules[3].StartTime, 1.0)
	assert.GreaterOrEqual(t, sol.TaskSchedules[4].StartTime, 2.0)
	assert.Equal(t, 3.0, sol.Makespan)
}

// P2: every predecessor finishes no later than its successor starts.
func TestSchedulePrecedenceInvariant(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 15, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 25, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
		},
		map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 5, AvailableMemory: 10},
			2: {ID: 2, Performance: 5, AvailableMemory: 10},
		},
	)
	sol := Schedule(instance, types.Assignment{1: 1, 2: 2})
	assert.LessOrEqual(t, sol.TaskSchedules[1].CompletionTime, sol.TaskSchedules[2].StartTime)
}

// P3: determinism across repeated evaluations.
func TestScheduleDeterministic(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 20, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
		},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 10}},
	)
	assignment := types.Assignment{1: 1, 2: 1}
	a := Schedule(instance, assignment)
	b := Schedule(instance, assignment)
	assert.Equal(t, a.Makespan, b.Makespan)
	assert.Equal(t, a.TotalPenalty, b.TotalPenalty)
	assert.Equal(t, a.TaskSchedules, b.TaskSchedules)
}

// P4: penalty monotonicity as memory requirement grows past capacity.
func TestSchedulePenaltyMonotone(t *testing.T) {
	machines := map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 5}}
	instanceAt := func(mem float64) *types.ProblemInstance {
		return instanceWith(map[types.TaskID]types.Task{1: {ID: 1, ComputationVolume: 10, MemoryRequirement: mem}}, machines)
	}
	solSmall := Schedule(instanceAt(6), types.Assignment{1: 1})
	solLarge := Schedule(instanceAt(50), types.Assignment{1: 1})
	assert.Greater(t, solLarge.TotalPenalty, solSmall.TotalPenalty)
}

func TestScheduleMissingMachineIsHardViolation(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1}},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 10}},
	)
	sol := Schedule(instance, types.Assignment{1: 99})
	assert.False(t, sol.Feasible)
	assert.True(t, math.IsInf(sol.Fitness, 1))
}

func TestScheduleEmptyInstance(t *testing.T) {
	instance := instanceWith(map[types.TaskID]types.Task{}, map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 1, AvailableMemory: 1}})
	sol := Schedule(instance, types.Assignment{})
	assert.Equal(t, 0.0, sol.Makespan)
	assert.Equal(t, 0.0, sol.Fitness)
}

func TestScheduleAllPreservesOrder(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1}},
		map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 10, AvailableMemory: 10},
			2: {ID: 2, Performance: 2, AvailableMemory: 10},
		},
	)
	assignments := []types.Assignment{
		{1: 1},
		{1: 2},
		{1: 1},
		{1: 2},
	}
	results := ScheduleAll(instance, assignments)
	require.Len(t, results, 4)
	assert.Equal(t, 1.0, results[0].Makespan)
	assert.Equal(t, 5.0, results[1].Makespan)
	assert.Equal(t, 1.0, results[2].Makespan)
	assert.Equal(t, 5.0, results[3].Makespan)
}

func TestAssignmentFingerprintAgreesOnIdenticalAssignments(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1}, 2: {ID: 2}},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1}, 2: {ID: 2}},
	)
	a := types.Assignment{1: 1, 2: 2}
	b := types.Assignment{2: 2, 1: 1} // built in a different order
	assert.Equal(t, assignmentFingerprint(instance, a), assignmentFingerprint(instance, b))
}

func TestAssignmentFingerprintDiffersOnDifferentAssignments(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1}, 2: {ID: 2}},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1}, 2: {ID: 2}},
	)
	a := types.Assignment{1: 1, 2: 2}
	b := types.Assignment{1: 2, 2: 2}
	assert.NotEqual(t, assignmentFingerprint(instance, a), assignmentFingerprint(instance, b))
}

func TestScheduleAllMemoizesDuplicateAssignmentsWithinBatch(t *testing.T) {
	instance := instanceWith(
		map[types.TaskID]types.Task{1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1}},
		map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 10}},
	)

	assignments := make([]types.Assignment, 50)
	for i := range assignments {
		assignments[i] = types.Assignment{1: 1}
	}

	results := ScheduleAll(instance, assignments)
	require.Len(t, results, 50)
	for _, sol := range results {
		assert.Equal(t, 1.0, sol.Makespan)
		assert.True(t, sol.Feasible)
		assert.Equal(t, results[0].ComputationTime, sol.ComputationTime)
	}
}
