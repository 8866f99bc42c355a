package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metasched/metasched/pkg/types"
)

func chainOrchestratorInstance() *types.ProblemInstance {
	return &types.ProblemInstance{
		Tasks: map[types.TaskID]types.Task{
			1: {ID: 1, ComputationVolume: 10, MemoryRequirement: 1},
			2: {ID: 2, ComputationVolume: 20, MemoryRequirement: 1, PredecessorIDs: []types.TaskID{1}},
		},
		Machines: map[types.MachineID]types.VirtualMachine{
			1: {ID: 1, Performance: 10, AvailableMemory: 10},
		},
		MemoryPenaltyCoefficient:     types.DefaultMemoryPenaltyCoefficient,
		PrecedencePenaltyCoefficient: types.DefaultPrecedencePenaltyCoefficient,
	}
}

func smallPSOConfig() types.PSOConfig {
	seed := int64(3)
	cfg := types.DefaultPSOConfig()
	cfg.SwarmSize = 8
	cfg.MaxIterations = 20
	cfg.NoImprovementLimit = 20
	cfg.RandomSeed = &seed
	return cfg
}

func TestOrchestratorRejectsOperationsBeforeInstanceLoaded(t *testing.T) {
	o := New(slog.Default(), 4)
	err := o.Start(types.AlgorithmPSO, smallPSOConfig(), types.DefaultGAConfig())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestOrchestratorLoadInstanceRejectsCycle(t *testing.T) {
	o := New(slog.Default(), 4)
	cyclic := &types.ProblemInstance{
		Tasks: map[types.TaskID]types.Task{
			1: {ID: 1, PredecessorIDs: []types.TaskID{2}},
			2: {ID: 2, PredecessorIDs: []types.TaskID{1}},
		},
		Machines: map[types.MachineID]types.VirtualMachine{1: {ID: 1, Performance: 1, AvailableMemory: 1}},
	}
	err := o.LoadInstance(cyclic)
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestOrchestratorFullLifecycleStepMode(t *testing.T) {
	o := New(slog.Default(), 32)
	require.NoError(t, o.LoadInstance(chainOrchestratorInstance()))
	assert.Equal(t, types.StatusReady, o.Status())

	require.NoError(t, o.Start(types.AlgorithmPSO, smallPSOConfig(), types.DefaultGAConfig()))
	assert.Equal(t, types.StatusRunning, o.Status())

	for o.Status() == types.StatusRunning {
		require.NoError(t, o.Step())
	}
	assert.Equal(t, types.StatusCompleted, o.Status())

	best := o.BestSolution()
	require.NotNil(t, best)
	assert.True(t, best.Feasible)

	select {
	case ev := <-o.Completed():
		assert.Equal(t, types.StatusCompleted, ev.Status)
	default:
		t.Fatal("expected a completion event")
	}
}

func TestOrchestratorStopTransitionsToStopped(t *testing.T) {
	o := New(slog.Default(), 32)
	require.NoError(t, o.LoadInstance(chainOrchestratorInstance()))
	require.NoError(t, o.Start(types.AlgorithmGA, smallPSOConfig(), types.DefaultGAConfig()))

	require.NoError(t, o.Step())
	require.NoError(t, o.Stop())
	assert.Equal(t, types.StatusStopped, o.Status())
	assert.ErrorIs(t, o.Stop(), ErrNotRunning)
}

func TestOrchestratorRejectsDoubleStart(t *testing.T) {
	o := New(slog.Default(), 32)
	require.NoError(t, o.LoadInstance(chainOrchestratorInstance()))
	require.NoError(t, o.Start(types.AlgorithmPSO, smallPSOConfig(), types.DefaultGAConfig()))

	err := o.Start(types.AlgorithmPSO, smallPSOConfig(), types.DefaultGAConfig())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestOrchestratorRunHonorsCancellation(t *testing.T) {
	o := New(slog.Default(), 32)
	require.NoError(t, o.LoadInstance(chainOrchestratorInstance()))

	cfg := smallPSOConfig()
	cfg.MaxIterations = 1_000_000
	cfg.NoImprovementLimit = 1_000_000
	require.NoError(t, o.Start(types.AlgorithmPSO, cfg, types.DefaultGAConfig()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.Run(ctx)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, types.StatusStopped, o.Status())
}

func TestOrchestratorResetAllowsRerun(t *testing.T) {
	o := New(slog.Default(), 32)
	require.NoError(t, o.LoadInstance(chainOrchestratorInstance()))
	require.NoError(t, o.Start(types.AlgorithmPSO, smallPSOConfig(), types.DefaultGAConfig()))
	require.NoError(t, o.Stop())

	require.NoError(t, o.Reset())
	assert.Equal(t, types.StatusReady, o.Status())
	require.NoError(t, o.Start(types.AlgorithmGA, smallPSOConfig(), types.DefaultGAConfig()))
	assert.Equal(t, types.StatusRunning, o.Status())
}

func TestOrchestratorGenerateAndLoad(t *testing.T) {
	o := New(slog.Default(), 4)
	err := o.GenerateAndLoad(10, 3, 42, types.DefaultGenerationConfig())
	require.NoError(t, err)
	assert.Equal(t, types.StatusReady, o.Status())
}
