package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"enton/internal/gwt"
	"enton/internal/metacognition"
	"enton/internal/prediction"
)

var (
	simTicks    int
	simPresent  bool
	simActivity string
	simStep     time.Duration
)

// simulateCmd drives the workspace offline against a fresh world model
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run workspace ticks offline and print the winners",
	Long: `Feeds a constant observation to the prediction engine and runs the
perception and executive modules on a simulated clock. Nothing touches the
real data dir: the world model lives in a temporary directory.

Example:
  enton simulate --ticks 30 --step 10s
  enton simulate --present --activity high`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	activity := prediction.ActivityLevel(simActivity)
	switch activity {
	case prediction.ActivityLow, prediction.ActivityMedium, prediction.ActivityHigh:
	default:
		return fmt.Errorf("invalid --activity %q (valid: low, medium, high)", simActivity)
	}
	if simTicks <= 0 {
		return fmt.Errorf("--ticks must be positive")
	}
	step := simStep
	if step <= 0 {
		step = cfg.Workspace.GetTickInterval()
	}

	dir, err := os.MkdirTemp("", "enton-sim-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	now := time.Now()
	clock := func() time.Time { return now }

	popts := prediction.OptionsFromConfig(cfg.Prediction)
	popts.Now = clock
	engine := prediction.NewEngine(prediction.NewWorldModel(filepath.Join(dir, "world_model.json"), cfg.Prediction.ColdStartSamples), popts)
	defer engine.Shutdown()

	mopts := metacognition.OptionsFromConfig(cfg.Metacognition)
	mopts.Now = clock
	meta := metacognition.New(mopts)

	ws := gwt.NewGlobalWorkspace(cfg.Workspace.HistorySize)
	perception := gwt.NewPerceptionModule(engine, cfg.Workspace.SaliencyScale, cfg.Workspace.SaliencyThreshold)
	ws.RegisterModule(perception)
	ws.RegisterModule(gwt.NewExecutiveModule(meta, nil))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-9s %-8s %s\n", "TICK", "SURPRISE", "BOREDOM", "WINNER")
	for i := 1; i <= simTicks; i++ {
		now = now.Add(step)
		surprise := perception.UpdateState(prediction.WorldState{
			Timestamp:     now,
			UserPresent:   simPresent,
			ActivityLevel: activity,
		})
		winner := "-"
		if msg := ws.Tick(); msg != nil {
			winner = fmt.Sprintf("[%s/%s %.2f] %s", msg.Source, msg.Modality, msg.Saliency, msg.Content)
		}
		fmt.Fprintf(out, "%-5d %-9.3f %-8.2f %s\n", i, surprise, meta.Boredom(), winner)
	}
	fmt.Fprintln(out, ws.Summary())
	return nil
}
