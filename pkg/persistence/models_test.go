package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metasched/metasched/pkg/types"
)

func TestSolutionJSONRoundTrip(t *testing.T) {
	original := &types.Solution{
		Makespan: 12.5,
		Fitness:  12.5,
		Feasible: true,
		TaskSchedules: map[types.TaskID]types.TaskSchedule{
			1: {TaskID: 1, MachineID: 1, StartTime: 0, CompletionTime: 5},
		},
	}

	value, err := SolutionJSON{Solution: original}.Value()
	require.NoError(t, err)

	var restored SolutionJSON
	require.NoError(t, restored.Scan(value))
	assert.Equal(t, original.Makespan, restored.Solution.Makespan)
	assert.Equal(t, original.Feasible, restored.Solution.Feasible)
	assert.Len(t, restored.Solution.TaskSchedules, 1)
}

func TestSolutionJSONNilRoundTrip(t *testing.T) {
	value, err := SolutionJSON{}.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var restored SolutionJSON
	require.NoError(t, restored.Scan(nil))
	assert.Nil(t, restored.Solution)
}

func TestNewRunRecordInfeasibleCompletion(t *testing.T) {
	event := types.CompletionEvent{
		RunID:           "run-1",
		BestSolution:    nil,
		TotalIterations: 10,
		ComputationTime: time.Second,
		Status:          types.StatusStopped,
	}

	rec := NewRunRecord("pso", 5, 2, event, time.Now(), time.Now())
	assert.Equal(t, "run-1", rec.RunID)
	assert.False(t, rec.Feasible)
	assert.True(t, rec.BestFitness > 1e300)
}

func TestNewRunRecordFeasibleCompletion(t *testing.T) {
	event := types.CompletionEvent{
		RunID: "run-2",
		BestSolution: &types.Solution{
			Makespan: 4.0,
			Fitness:  4.0,
			Feasible: true,
		},
		TotalIterations: 20,
		Status:          types.StatusCompleted,
	}

	rec := NewRunRecord("ga", 8, 3, event, time.Now(), time.Now())
	assert.True(t, rec.Feasible)
	assert.Equal(t, 4.0, rec.BestMakespan)
}
