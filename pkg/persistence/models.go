package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metasched/metasched/pkg/types"
)

// RunRecord is a single optimization run's history entry, persisted to
// Postgres when the run completes or is stopped.
type RunRecord struct {
	RunID           string         `db:"run_id" json:"runId"`
	Algorithm       string         `db:"algorithm" json:"algorithm"`
	Status          string         `db:"status" json:"status"`
	TaskCount       int            `db:"task_count" json:"taskCount"`
	MachineCount    int            `db:"machine_count" json:"machineCount"`
	BestFitness     float64        `db:"best_fitness" json:"bestFitness"`
	BestMakespan    float64        `db:"best_makespan" json:"bestMakespan"`
	Feasible        bool           `db:"feasible" json:"feasible"`
	TotalIterations int            `db:"total_iterations" json:"totalIterations"`
	ComputationTime time.Duration  `db:"computation_time" json:"computationTime"`
	Solution        SolutionJSON   `db:"solution" json:"solution"`
	StartedAt       time.Time      `db:"started_at" json:"startedAt"`
	FinishedAt      time.Time      `db:"finished_at" json:"finishedAt"`
}

// NewRunRecord builds a RunRecord from a completion event and the
// instance size it ran against.
func NewRunRecord(algorithm string, taskCount, machineCount int, event types.CompletionEvent, startedAt, finishedAt time.Time) RunRecord {
	rec := RunRecord{
		RunID:           event.RunID,
		Algorithm:       algorithm,
		Status:          string(event.Status),
		TaskCount:       taskCount,
		MachineCount:    machineCount,
		TotalIterations: event.TotalIterations,
		ComputationTime: event.ComputationTime,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
	}
	if event.BestSolution != nil {
		rec.BestFitness = event.BestSolution.Fitness
		rec.BestMakespan = event.BestSolution.Makespan
		rec.Feasible = event.BestSolution.Feasible
		rec.Solution = SolutionJSON{Solution: event.BestSolution}
	} else {
		rec.BestFitness = types.PositiveInfinity()
	}
	return rec
}

// SolutionJSON adapts types.Solution to the sql/driver Valuer/Scanner
// interfaces so a run's best solution can round-trip through a JSONB
// column, following the same pattern the teacher's JSONMap uses.
type SolutionJSON struct {
	Solution *types.Solution
}

func (s SolutionJSON) Value() (driver.Value, error) {
	if s.Solution == nil {
		return nil, nil
	}
	return json.Marshal(s.Solution)
}

func (s *SolutionJSON) Scan(value interface{}) error {
	if value == nil {
		s.Solution = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into SolutionJSON", value)
	}
	var sol types.Solution
	if err := json.Unmarshal(bytes, &sol); err != nil {
		return fmt.Errorf("failed to unmarshal solution JSON: %w", err)
	}
	s.Solution = &sol
	return nil
}
