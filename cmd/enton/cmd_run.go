package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enton/internal/system"
)

// runCmd boots the mind and runs it until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start enton and run until SIGINT/SIGTERM",
	Long: `Boots every component (memory, providers, tools, skills, workspace,
brain, voice), restores the state saved on the previous shutdown and runs
the cognitive loops. State is saved periodically and on exit.`,
	Args: cobra.NoArgs,
	RunE: runMind,
}

func runMind(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Booting enton", zap.String("config", configPath), zap.String("data_dir", cfg.Paths.DataDir))
	mind, err := system.BootMind(ctx, cfg)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	rt := system.NewRuntime(mind)
	runErr := rt.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("Runtime failed", zap.Error(runErr))
	}

	logger.Info("Shutting down", zap.String("lifecycle", mind.Lifecycle.Summary()))
	if err := mind.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
