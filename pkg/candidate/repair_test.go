package candidate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metasched/metasched/pkg/types"
)

func twoMachineInstance() *types.ProblemInstance {
	return &types.ProblemInstance{
		Tasks: map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 8},
			2: {ID: 2, ComputationVolume: 10, MemoryRequirement: 2},
		},
		Machines: map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 10, AvailableMemory: 3},
			2: {ID: 2, Performance: 10, AvailableMemory: 9},
		},
		MemoryPenaltyCoefficient: types.DefaultMemoryPenaltyCoefficient,
	}
}

// P9: after repair, whenever any machine could host a task, it is
// assigned to one that can.
func TestRepairMovesInfeasibleTaskToFeasibleMachine(t *testing.T) {
	instance := twoMachineInstance()
	assignment := types.Assignment{1: 1, 2: 1}
	rng := rand.New(rand.NewSource(1))

	Repair(instance, assignment, rng)

	assert.Equal(t, types.MachineID(2), assignment[1], "task 1 needs 8 but machine 1 only has 3; must move to machine 2")
}

func TestRepairLeavesInfeasibleTaskWhenNoMachineQualifies(t *testing.T) {
	instance := twoMachineInstance()
	instance.Tasks[1] = types.Task{ID: 1, ComputationVolume: 10, MemoryRequirement: 100}
	assignment := types.Assignment{1: 1, 2: 2}
	rng := rand.New(rand.NewSource(1))

	Repair(instance, assignment, rng)

	assert.Equal(t, types.MachineID(1), assignment[1])
}

func TestRepairLeavesFeasibleAssignmentsUntouched(t *testing.T) {
	instance := twoMachineInstance()
	assignment := types.Assignment{1: 2, 2: 2}
	rng := rand.New(rand.NewSource(1))

	Repair(instance, assignment, rng)

	assert.Equal(t, types.MachineID(2), assignment[1])
	assert.Equal(t, types.MachineID(2), assignment[2])
}

func TestRandomOtherMachineNeverReturnsCurrent(t *testing.T) {
	instance := twoMachineInstance()
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		other := RandomOtherMachine(instance, 1, rng)
		assert.NotEqual(t, types.MachineID(1), other)
	}
}

func TestRandomOtherMachineSingleMachineReturnsCurrent(t *testing.T) {
	instance := &types.ProblemInstance{
		Machines: map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 10, AvailableMemory: 10}},
	}
	rng := rand.New(rand.NewSource(3))
	assert.Equal(t, types.MachineID(1), RandomOtherMachine(instance, 1, rng))
}
