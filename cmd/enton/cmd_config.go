package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"enton/internal/config"
	"enton/internal/store"
	"enton/internal/tools/memory"
)

var (
	forceInit   bool
	recallLimit int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

// configInitCmd writes the defaults so they can be edited
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to --config",
	Args:  cobra.NoArgs,
	RunE:  initConfig,
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect episodic memory",
}

var memoryRecallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Search episodic memory by keywords",
	Long: `Prints stored episodes matching any word of the query, newest first.

Example:
  enton memory recall github golang`,
	Args: cobra.MinimumNArgs(1),
	RunE: recallMemory,
}

func initConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", configPath)
	return nil
}

func recallMemory(cmd *cobra.Command, args []string) error {
	s, err := store.Open(cfg.Paths.MemoryDBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	query := joinArgs(args)
	eps, err := s.Recall(cmd.Context(), query, recallLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), memory.FormatEpisodes(query, eps))
	return nil
}

func joinArgs(args []string) string {
	result := ""
	for i, arg := range args {
		if i > 0 {
			result += " "
		}
		result += arg
	}
	return result
}
