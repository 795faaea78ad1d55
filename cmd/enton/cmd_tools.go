package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"enton/internal/skills"
	"enton/internal/system"
	"enton/internal/tools"
	"enton/internal/tools/research"
)

// toolsCmd prints what the brain can call
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print tool schemas (built-ins and skills) as JSON",
	Args:  cobra.NoArgs,
	RunE:  printTools,
}

// skillsCmd loads the skills dir and reports every file
var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Load the skills directory and print each result",
	Args:  cobra.NoArgs,
	RunE:  listSkills,
}

func printTools(cmd *cobra.Command, args []string) error {
	reg := tools.NewRegistry()
	learner := research.NewGitHubLearner(cfg.Tools.GitHubToken, cfg.Tools.GetWebFetchTimeout())
	if err := system.RegisterTools(reg, cfg, nil, nil, learner); err != nil {
		return err
	}
	if cfg.Skills.Enabled {
		sr := skills.NewRegistry(cfg.Paths.SkillsDir(), skills.NewLoader(cfg.Skills.AllowNetwork), reg, nil)
		if _, err := sr.ScanDir(cmd.Context()); err != nil {
			logger.Sugar().Warnf("skills scan failed: %v", err)
		}
	}

	data, err := json.MarshalIndent(reg.Schemas(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func listSkills(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := cfg.Paths.SkillsDir()
	sr := skills.NewRegistry(dir, skills.NewLoader(cfg.Skills.AllowNetwork), tools.NewRegistry(), nil)
	results, err := sr.ScanDir(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Skills in %s\n", dir)
	if len(results) == 0 {
		fmt.Fprintln(out, "  (none)")
		return nil
	}
	loaded := 0
	for _, r := range results {
		switch r.Status {
		case skills.Loaded:
			loaded++
			fmt.Fprintf(out, "  ✓ %-20s %s\n", r.Name, r.Tool.Description)
		default:
			fmt.Fprintf(out, "  ✗ %-20s %s: %v\n", r.Path, r.Status, r.Err)
		}
	}
	fmt.Fprintf(out, "%d/%d loaded\n", loaded, len(results))
	return nil
}
