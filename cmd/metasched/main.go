// Command metasched drives the task-scheduling optimizer: generate or
// load a problem instance, run PSO or GA against it, or serve the
// control API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	logger  *slog.Logger
)

// shutdownTimeout bounds how long serveCmd waits for in-flight requests
// to drain after an interrupt before forcing the listener closed.
const shutdownTimeout = 10 * time.Second

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rootCmd := &cobra.Command{
		Use:     "metasched",
		Short:   "DAG-aware VM task-scheduling optimizer",
		Version: version,
		Long: `metasched schedules a DAG of tasks onto heterogeneous virtual
machines, minimizing makespan subject to memory and precedence
constraints, using either Particle Swarm Optimization or a Genetic
Algorithm.`,
		Example: `  # Generate a random instance and save it
  metasched generate --tasks 50 --machines 8 --seed 1 -o instance.json

  # Run PSO against it, printing progress
  metasched run pso --instance instance.json

  # Serve the control API
  metasched serve --listen 0.0.0.0:8090`,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
