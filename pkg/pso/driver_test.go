package pso

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metasched/metasched/pkg/problem"
	"github.com/metasched/metasched/pkg/types"
)

func chainPSOInstance() *types.ProblemInstance {
	return &types.ProblemInstance{
		Tasks: map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 20, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
			3: {ID: 3, ComputationVolume: 30, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{2}},
		},
		Machines: map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 10, AvailableMemory: 10},
			2: {ID: 2, Performance: 5, AvailableMemory: 10},
		},
		MemoryPenaltyCoefficient:     types.DefaultMemoryPenaltyCoefficient,
		PrecedencePenaltyCoefficient: types.DefaultPrecedencePenaltyCoefficient,
	}
}

func testConfig() types.PSOConfig {
	seed := int64(7)
	cfg := types.DefaultPSOConfig()
	cfg.SwarmSize = 10
	cfg.MaxIterations = 60
	cfg.NoImprovementLimit = 30
	cfg.RandomSeed = &seed
	return cfg
}

// P6: the global-best fitness is non-increasing across iterations.
func TestDriverBestFitnessMonotoneNonIncreasing(t *testing.T) {
	instance := chainPSOInstance()
	d := New(instance, testConfig(), slog.Default())
	d.Start()

	prev := types.PositiveInfinity()
	for !d.IsComplete() {
		d.Step()
		cur := d.BestSolution().Fitness
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

// P7: the driver terminates within MaxIterations.
func TestDriverTerminates(t *testing.T) {
	instance := chainPSOInstance()
	cfg := testConfig()
	d := New(instance, cfg, slog.Default())
	d.Start()

	steps := 0
	for !d.IsComplete() && steps < cfg.MaxIterations+1 {
		d.Step()
		steps++
	}
	assert.True(t, d.IsComplete())
	assert.LessOrEqual(t, d.Iteration(), cfg.MaxIterations)
}

// P8: reproducibility — same instance, config and seed yields identical
// best-fitness history.
func TestDriverReproducibleForSameSeed(t *testing.T) {
	instance := chainPSOInstance()
	cfg := testConfig()

	run := func() []float64 {
		d := New(instance, cfg, slog.Default())
		d.Start()
		for !d.IsComplete() {
			d.Step()
		}
		return d.History()
	}

	a := run()
	b := run()
	assert.Equal(t, a, b)
}

// S6: a 20-task / 4-machine instance reaches a feasible solution within
// 500 iterations.
func TestDriverFindsFeasibleSolutionOnGeneratedInstance(t *testing.T) {
	genCfg := types.DefaultGenerationConfig()
	instance, err := problem.GenerateRandom(20, 4, 99, genCfg)
	require.NoError(t, err)

	seed := int64(99)
	cfg := types.DefaultPSOConfig()
	cfg.SwarmSize = 30
	cfg.MaxIterations = 500
	cfg.NoImprovementLimit = 500
	cfg.RandomSeed = &seed

	d := New(instance, cfg, slog.Default())
	d.Start()
	for !d.IsComplete() {
		d.Step()
	}

	best := d.BestSolution()
	require.NotNil(t, best)
	assert.True(t, best.Feasible)
	assert.False(t, best.Fitness > 1e11)
}

func TestDriverStopForcesCompletion(t *testing.T) {
	instance := chainPSOInstance()
	d := New(instance, testConfig(), slog.Default())
	d.Start()
	d.Step()
	d.Stop()
	assert.True(t, d.IsComplete())
}
