package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metasched/metasched/pkg/orchestrator"
	"github.com/metasched/metasched/pkg/types"
)

func runCmd() *cobra.Command {
	var instancePath, outPath string
	var swarmSize, maxIterations, populationSize, maxGenerations int

	cmd := &cobra.Command{
		Use:       "run [pso|ga]",
		Short:     "Run an optimization algorithm against a problem instance",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"pso", "ga"},
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := loadInstance(instancePath)
			if err != nil {
				return err
			}

			psoConfig := types.DefaultPSOConfig()
			if swarmSize > 0 {
				psoConfig.SwarmSize = swarmSize
			}
			if maxIterations > 0 {
				psoConfig.MaxIterations = maxIterations
			}

			gaConfig := types.DefaultGAConfig()
			if populationSize > 0 {
				gaConfig.PopulationSize = populationSize
			}
			if maxGenerations > 0 {
				gaConfig.MaxGenerations = maxGenerations
			}

			var algo types.AlgorithmKind
			switch args[0] {
			case "pso":
				algo = types.AlgorithmPSO
			case "ga":
				algo = types.AlgorithmGA
			}

			orch := orchestrator.New(logger, 16)
			if err := orch.LoadInstance(instance); err != nil {
				return fmt.Errorf("failed to load instance: %w", err)
			}
			if err := orch.Start(algo, psoConfig, gaConfig); err != nil {
				return fmt.Errorf("failed to start run: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go drainProgress(orch)

			solution, err := orch.Run(ctx)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			return writeSolution(solution, outPath)
		},
	}

	cmd.Flags().StringVarP(&instancePath, "instance", "i", "", "problem instance JSON file (required)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "solution output file (default: stdout)")
	cmd.Flags().IntVar(&swarmSize, "swarm-size", 0, "PSO swarm size (default: algorithm default)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "PSO max iterations (default: algorithm default)")
	cmd.Flags().IntVar(&populationSize, "population-size", 0, "GA population size (default: algorithm default)")
	cmd.Flags().IntVar(&maxGenerations, "max-generations", 0, "GA max generations (default: algorithm default)")
	cmd.MarkFlagRequired("instance")

	return cmd
}

func drainProgress(orch *orchestrator.Orchestrator) {
	for event := range orch.Progress() {
		logger.Info("progress", "run_id", event.RunID, "iteration", event.Iteration, "best_fitness", event.BestFitness, "average_fitness", event.AverageFitness)
	}
}

func writeSolution(solution *types.Solution, outPath string) error {
	data, err := json.MarshalIndent(solution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}

	if outPath == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	logger.Info("wrote solution", "path", outPath, "makespan", solution.Makespan, "feasible", solution.Fitness == solution.Makespan)
	return nil
}
