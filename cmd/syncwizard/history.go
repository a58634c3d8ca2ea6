package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/syncwizard/internal/journal"
	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

var historyFlags struct {
	json bool
}

var historyCmd = &cobra.Command{
	Use:   "history [run]",
	Short: "Show past wizard runs from the journal",
	Long: `Show past wizard runs recorded in the journal.

Without arguments every run is listed with its outcome. With a run name the
pages it went through, its warnings and where it ended are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyFlags.json, "json", false, "Output JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal {
		return fmt.Errorf("the journal is disabled (journal: false)")
	}

	ctx := cmd.Context()
	j, store, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Warn("Failed to close journal: %v", err)
		}
	}()

	var runs []*journal.RunState
	if len(args) == 1 {
		st, err := store.LoadRun(ctx, args[0])
		if err != nil {
			return err
		}
		runs = append(runs, st)
	} else {
		names, err := store.ListRuns(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			st, err := store.LoadRun(ctx, name)
			if err != nil {
				return err
			}
			runs = append(runs, st)
		}
	}

	out := cmd.OutOrStdout()
	if historyFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(args) == 1 {
			return enc.Encode(runs[0])
		}
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	s := theme.Current().S()
	for _, st := range runs {
		outcome := s.Muted.Render(st.Outcome)
		switch st.Outcome {
		case journal.OutcomeFinished:
			outcome = s.Success.Render(st.Outcome)
		case journal.OutcomeCancelled:
			outcome = s.Warning.Render(st.Outcome)
		}
		line := fmt.Sprintf("%s  %s", s.Text.Render(st.Run), outcome)
		if st.URL != "" {
			line += "  " + s.Muted.Render(st.URL)
		}
		fmt.Fprintln(out, line)

		if len(args) == 1 {
			fmt.Fprintf(out, "  %s %s\n", s.Label.Render("pages:"), strings.Join(st.Pages, " → "))
			for _, w := range st.Warnings {
				fmt.Fprintln(out, "  "+s.Warning.Render("! "+w))
			}
			if st.Failures > 0 {
				fmt.Fprintf(out, "  %s %d\n", s.Label.Render("failures:"), st.Failures)
			}
		}
	}
	return nil
}
