package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metasched/metasched/pkg/orchestrator"
	"github.com/metasched/metasched/pkg/types"
)

// ProgressChannel is the Redis pub/sub channel a run's progress events
// are published to, so a consumer doesn't need a direct reference to
// the orchestrator.
func ProgressChannel(runID string) string {
	return "metasched:progress:" + runID
}

// RecordRun relays one run's progress events to Redis and persists its
// RunRecord to Postgres once it completes or is stopped. It blocks
// until the orchestrator publishes a CompletionEvent or ctx is
// cancelled.
func (m *Manager) RecordRun(ctx context.Context, orch *orchestrator.Orchestrator, instance *types.ProblemInstance, algorithm types.AlgorithmKind) error {
	startedAt := time.Now()
	channel := ""

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event := <-orch.Progress():
			if channel == "" {
				channel = ProgressChannel(event.RunID)
			}
			payload, err := json.Marshal(event)
			if err != nil {
				m.logger.Warn("failed to marshal progress event", "run_id", event.RunID, "error", err)
				continue
			}
			if err := m.Redis.Publish(ctx, channel, payload).Err(); err != nil {
				m.logger.Warn("failed to publish progress event", "run_id", event.RunID, "error", err)
			}

		case event := <-orch.Completed():
			rec := NewRunRecord(string(algorithm), len(instance.Tasks), len(instance.Machines), event, startedAt, time.Now())
			if err := m.Runs.Create(ctx, &rec); err != nil {
				return fmt.Errorf("failed to record finished run: %w", err)
			}
			return nil
		}
	}
}
