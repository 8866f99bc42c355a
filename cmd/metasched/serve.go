package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"os"

	"github.com/spf13/cobra"

	"github.com/metasched/metasched/internal/config"
	"github.com/metasched/metasched/pkg/api"
	"github.com/metasched/metasched/pkg/orchestrator"
	"github.com/metasched/metasched/pkg/persistence"
)

func serveCmd() *cobra.Command {
	var listen string
	var authEnabled bool
	var persist bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP + WebSocket control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if configPath != "" {
				if err := config.LoadConfigFile(cfg, configPath); err != nil {
					return err
				}
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if cmd.Flags().Changed("auth") {
				cfg.Auth.Enabled = authEnabled
			}

			orch := orchestrator.New(logger, 64)

			srv, err := api.NewServer(cfg, orch, logger)
			if err != nil {
				return fmt.Errorf("failed to build server: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if persist {
				mgr, err := persistence.NewManager(ctx, &cfg.Persistence, logger)
				if err != nil {
					return fmt.Errorf("failed to connect persistence store: %w", err)
				}
				defer mgr.Close()
				logger.Info("persistence store connected", "postgres", cfg.Persistence.PostgresDSN, "redis", cfg.Persistence.RedisAddr)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer stopCancel()
				return srv.Stop(stopCtx)
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server exited: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: METASCHED_LISTEN or 0.0.0.0:8090)")
	cmd.Flags().BoolVar(&authEnabled, "auth", false, "require JWT authentication on the protected API group")
	cmd.Flags().BoolVar(&persist, "persist", false, "connect to Postgres/Redis at startup (runs are not recorded)")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file overlaid on top of defaults/env (default: METASCHED_CONFIG_FILE)")

	return cmd
}
