package visualization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metasched/metasched/pkg/types"
)

func sampleSolution() *types.Solution {
	return &types.Solution{
		Makespan: 6.0,
		Fitness:  6.0,
		Feasible: true,
		TaskSchedules: map[types.TaskID]types.TaskSchedule{
			1: {TaskID: 1, MachineID: 1, StartTime: 0, CompletionTime: 1},
			2: {TaskID: 2, MachineID: 1, StartTime: 1, CompletionTime: 4},
			3: {TaskID: 3, MachineID: 2, StartTime: 0, CompletionTime: 2},
		},
	}
}

func TestGanttChartGroupsAndOrdersByMachine(t *testing.T) {
	chart := GanttChart(sampleSolution())
	assert.Len(t, chart, 2)
	assert.Equal(t, types.MachineID(1), chart[0].MachineID)
	assert.Equal(t, types.MachineID(2), chart[1].MachineID)
	assert.Len(t, chart[0].Bars, 2)
	assert.Equal(t, types.TaskID(1), chart[0].Bars[0].TaskID)
	assert.Equal(t, types.TaskID(2), chart[0].Bars[1].TaskID)
	assert.Equal(t, 3.0, chart[0].Bars[1].Duration)
}

func TestGanttChartNilSolution(t *testing.T) {
	assert.Nil(t, GanttChart(nil))
}

func TestFitnessSeriesIndexesFromZero(t *testing.T) {
	series := FitnessSeries([]float64{10, 8, 8, 5})
	assert.Len(t, series, 4)
	assert.Equal(t, 0, series[0].Iteration)
	assert.Equal(t, 5.0, series[3].Fitness)
}

func TestSummarizeNilSolutionIsInfeasible(t *testing.T) {
	summary := Summarize("run-a", nil)
	assert.False(t, summary.Feasible)
	assert.True(t, summary.Fitness > 1e300)
}

func TestSummarizePopulatesFields(t *testing.T) {
	summary := Summarize("run-a", sampleSolution())
	assert.Equal(t, "run-a", summary.Label)
	assert.Equal(t, 6.0, summary.Makespan)
	assert.True(t, summary.Feasible)
}
