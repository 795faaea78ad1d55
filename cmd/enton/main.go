package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"enton/internal/config"
	"enton/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "enton",
	Short: "enton - an embodied assistant with a global workspace mind",
	Long: `enton is a voice assistant that runs a small cognitive architecture:
a global workspace where perception, executive control and background
tasks compete for attention, a predictive world model that scores
surprise, and moods, desires and awareness levels that persist across
restarts.

Use "enton run" to start it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		// The long-running mind logs to per-category files; one-shot commands
		// share the console logger.
		if cmd == runCmd {
			if err := logging.Initialize(cfg.Paths.LogsDir(), cfg.Logging.Options()); err != nil {
				return err
			}
			if err := logging.InitAudit(); err != nil {
				return err
			}
		} else {
			logging.Attach(logger)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAudit()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadEnv reads KEY=VALUE pairs from path into the environment. A missing
// default .env is fine; a missing explicit file is not.
func loadEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: ./.env when present)")

	simulateCmd.Flags().IntVar(&simTicks, "ticks", 20, "Number of workspace ticks")
	simulateCmd.Flags().BoolVar(&simPresent, "present", false, "Simulate a user in front of the camera")
	simulateCmd.Flags().StringVar(&simActivity, "activity", "low", "Activity level: low, medium or high")
	simulateCmd.Flags().DurationVar(&simStep, "step", 0, "Simulated time per tick (default: workspace tick interval)")

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config")
	configCmd.AddCommand(configInitCmd)

	memoryRecallCmd.Flags().IntVar(&recallLimit, "limit", 5, "Maximum episodes to show")
	memoryCmd.AddCommand(memoryRecallCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(memoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
