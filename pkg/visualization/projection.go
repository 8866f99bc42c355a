// Package visualization turns a types.Solution into the flat,
// JSON-friendly projections a UI or report renders directly: a
// per-machine Gantt timeline and a fitness-over-time series. It holds
// no state and performs no I/O — every function is a pure projection.
package visualization

import "github.com/metasched/metasched/pkg/types"

// GanttBar is one task's slot in a per-machine timeline.
type GanttBar struct {
	TaskID    types.TaskID    `json:"taskId"`
	MachineID types.MachineID `json:"machineId"`
	Start     float64         `json:"start"`
	Finish    float64         `json:"finish"`
	Duration  float64         `json:"duration"`
}

// MachineTimeline is the ordered sequence of bars scheduled on one
// machine, sorted by start time.
type MachineTimeline struct {
	MachineID types.MachineID `json:"machineId"`
	Bars      []GanttBar      `json:"bars"`
}

// GanttChart projects a Solution's task schedules into one timeline per
// machine, each sorted by start time, for direct rendering.
func GanttChart(solution *types.Solution) []MachineTimeline {
	if solution == nil {
		return nil
	}
	byMachine := make(map[types.MachineID][]GanttBar)
	for _, ts := range solution.TaskSchedules {
		bar := GanttBar{
			TaskID:    ts.TaskID,
			MachineID: ts.MachineID,
			Start:     ts.StartTime,
			Finish:    ts.CompletionTime,
			Duration:  ts.CompletionTime - ts.StartTime,
		}
		byMachine[ts.MachineID] = append(byMachine[ts.MachineID], bar)
	}

	timelines := make([]MachineTimeline, 0, len(byMachine))
	for machineID, bars := range byMachine {
		sortBarsByStart(bars)
		timelines = append(timelines, MachineTimeline{MachineID: machineID, Bars: bars})
	}
	sortTimelinesByMachine(timelines)
	return timelines
}

func sortBarsByStart(bars []GanttBar) {
	for i := 1; i < len(bars); i++ {
		for j := i; j > 0 && bars[j-1].Start > bars[j].Start; j-- {
			bars[j-1], bars[j] = bars[j], bars[j-1]
		}
	}
}

func sortTimelinesByMachine(timelines []MachineTimeline) {
	for i := 1; i < len(timelines); i++ {
		for j := i; j > 0 && timelines[j-1].MachineID > timelines[j].MachineID; j-- {
			timelines[j-1], timelines[j] = timelines[j], timelines[j-1]
		}
	}
}

// FitnessPoint is one sample of a convergence curve.
type FitnessPoint struct {
	Iteration int     `json:"iteration"`
	Fitness   float64 `json:"fitness"`
}

// FitnessSeries turns a driver's recorded best-fitness history into a
// rendering-ready, 0-indexed point series.
func FitnessSeries(history []float64) []FitnessPoint {
	points := make([]FitnessPoint, len(history))
	for i, fitness := range history {
		points[i] = FitnessPoint{Iteration: i, Fitness: fitness}
	}
	return points
}

// ComparisonSummary condenses a run for side-by-side comparison of two
// algorithms (or two runs of the same algorithm) over the same instance.
type ComparisonSummary struct {
	Label           string  `json:"label"`
	Makespan        float64 `json:"makespan"`
	TotalPenalty    float64 `json:"totalPenalty"`
	Fitness         float64 `json:"fitness"`
	Feasible        bool    `json:"feasible"`
	IterationFound  int     `json:"iterationFound"`
}

// Summarize builds the ComparisonSummary for one labeled solution.
func Summarize(label string, solution *types.Solution) ComparisonSummary {
	if solution == nil {
		return ComparisonSummary{Label: label, Fitness: types.PositiveInfinity()}
	}
	return ComparisonSummary{
		Label:          label,
		Makespan:       solution.Makespan,
		TotalPenalty:   solution.TotalPenalty,
		Fitness:        solution.Fitness,
		Feasible:       solution.Feasible,
		IterationFound: solution.IterationFound,
	}
}
