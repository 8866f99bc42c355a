package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metasched/metasched/pkg/problem"
	"github.com/metasched/metasched/pkg/types"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <instance.json>",
		Short: "Validate a problem instance's predecessor references and acyclicity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := loadInstance(args[0])
			if err != nil {
				return err
			}

			if err := problem.ValidateErr(instance); err != nil {
				return fmt.Errorf("instance is invalid: %w", err)
			}

			logger.Info("instance is valid", "tasks", len(instance.Tasks), "machines", len(instance.Machines))
			return nil
		},
	}
	return cmd
}

func loadInstance(path string) (*types.ProblemInstance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var instance types.ProblemInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &instance, nil
}
