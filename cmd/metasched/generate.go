package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metasched/metasched/pkg/problem"
	"github.com/metasched/metasched/pkg/types"
)

func generateCmd() *cobra.Command {
	var taskCount, machineCount int
	var seed int64
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random problem instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := problem.GenerateRandom(taskCount, machineCount, seed, types.DefaultGenerationConfig())
			if err != nil {
				return fmt.Errorf("failed to generate instance: %w", err)
			}

			data, err := json.MarshalIndent(instance, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal instance: %w", err)
			}

			if outPath == "" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			logger.Info("generated problem instance", "tasks", taskCount, "machines", machineCount, "seed", seed, "path", outPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&taskCount, "tasks", 20, "number of tasks")
	cmd.Flags().IntVar(&machineCount, "machines", 4, "number of machines")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default: stdout)")

	return cmd
}
