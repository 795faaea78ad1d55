package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"enton/internal/lifecycle"
	"enton/internal/store"
)

// statusCmd shows what enton persisted on its last shutdown
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lifecycle, mood, awareness and desires from disk",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	lc := lifecycle.Load(cfg.Paths.StatePath())
	st := lc.State()

	fmt.Fprintln(out, "enton status")
	fmt.Fprintln(out, "============")
	fmt.Fprintf(out, "Data dir: %s\n", cfg.Paths.DataDir)
	if st.BootCount == 0 {
		fmt.Fprintln(out, "Never booted.")
		return nil
	}

	fmt.Fprintf(out, "Boots:    %d\n", st.BootCount)
	fmt.Fprintf(out, "Uptime:   %s total\n", lifecycle.HumanDuration(time.Duration(st.TotalUptimeSeconds*float64(time.Second))))
	if st.LastShutdown > 0 {
		last := time.Unix(0, int64(st.LastShutdown*float64(time.Second)))
		fmt.Fprintf(out, "Last off: %s (%s ago)\n", last.Format(time.RFC3339), lifecycle.HumanDuration(time.Since(last)))
	}
	if st.Mood != nil {
		fmt.Fprintf(out, "Mood:     engagement=%.2f social=%.2f\n", st.Mood.Engagement, st.Mood.Social)
	}
	if st.Awareness != nil {
		fmt.Fprintf(out, "Awareness: %s (%d transitions)\n", st.Awareness.State, st.Awareness.Transitions)
	}
	if st.Metacognition != nil {
		fmt.Fprintf(out, "Boredom:  %.2f, %d curiosity topics queued\n", st.Metacognition.BoredomLevel, len(st.Metacognition.Curiosity))
	}

	if len(st.Desires) > 0 {
		names := make([]string, 0, len(st.Desires))
		for name := range st.Desires {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := st.Desires[names[i]], st.Desires[names[j]]
			if a.Urgency != b.Urgency {
				return a.Urgency > b.Urgency
			}
			return names[i] < names[j]
		})
		fmt.Fprintln(out, "Desires:")
		for _, name := range names {
			d := st.Desires[name]
			flag := ""
			if !d.Enabled {
				flag = " (disabled)"
			}
			fmt.Fprintf(out, "  %-14s %.2f%s\n", name, d.Urgency, flag)
		}
	}

	if _, err := os.Stat(cfg.Paths.MemoryDBPath()); err == nil {
		s, err := store.Open(cfg.Paths.MemoryDBPath())
		if err != nil {
			return err
		}
		defer s.Close()
		n, err := s.CountEpisodes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Memories: %d episodes\n", n)
	}
	return nil
}
