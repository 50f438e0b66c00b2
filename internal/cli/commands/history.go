package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/ui"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past plan and apply runs",
		Long: `List past runs, newest first, or show one run in detail.

A run ID may be shortened to any unique prefix.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.openJournal(cmd.Context()); err != nil {
				return err
			}

			if len(args) == 1 {
				run, err := findRun(cmd, p.journal, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), run)
				}
				printRun(cmd, run, opts.noColor)
				return nil
			}

			runs, err := p.journal.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			table := ui.NewTable(cmd.OutOrStdout(), opts.noColor, "ID", "COMMAND", "STATUS", "STARTED", "CHANGES", "FILES")
			for _, r := range runs {
				table.AddRow(shortID(r.ID), r.Command, string(r.Status),
					r.StartedAt.Local().Format(time.DateTime), fmt.Sprint(r.Changes), fmt.Sprint(len(r.Files)))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// findRun looks a run up by full ID or unique prefix
func findRun(cmd *cobra.Command, journal *history.Store, id string) (*history.Run, error) {
	run, err := journal.Get(cmd.Context(), id)
	if err == nil {
		return run, nil
	}

	runs, listErr := journal.List(cmd.Context(), 0)
	if listErr != nil {
		return nil, listErr
	}
	var found *history.Run
	for i := range runs {
		if strings.HasPrefix(runs[i].ID, id) {
			if found != nil {
				return nil, fmt.Errorf("run ID %s is ambiguous", id)
			}
			found = &runs[i]
		}
	}
	if found == nil {
		return nil, err
	}
	return found, nil
}

func printRun(cmd *cobra.Command, run *history.Run, noColor bool) {
	out := cmd.OutOrStdout()
	ui.Header(out, "Run "+run.ID, noColor)
	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("command", run.Command)
	kv.AddRow("status", string(run.Status))
	kv.AddRow("started", run.StartedAt.Local().Format(time.RFC1123))
	kv.AddRow("duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String())
	kv.AddRow("modules", joinOrDash(run.Modules))
	kv.AddRow("changes", fmt.Sprint(run.Changes))
	if run.Error != "" {
		kv.AddRow("error", run.Error)
	}
	kv.Render()

	if len(run.Files) > 0 {
		fmt.Fprintln(out)
		for _, f := range run.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
