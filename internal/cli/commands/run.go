package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/app"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/ui"
)

// defaultLockWait is how long an apply waits for another run on the project
const defaultLockWait = 30 * time.Second

// applyOptions configures applyProject
type applyOptions struct {
	dryRun bool
	stat   bool
	asJSON bool
	wait   time.Duration
}

// NewPlanCommand creates the plan command
func NewPlanCommand(opts *globalOptions) *cobra.Command {
	var (
		stat   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the changes apply would make",
		Long: `Run every enabled module without writing anything and print the
resulting file changes as unified diffs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(opts)
			if err != nil {
				return err
			}
			return applyProject(cmd.Context(), cmd, opts, root, applyOptions{dryRun: true, stat: stat, asJSON: asJSON})
		},
	}

	cmd.Flags().BoolVar(&stat, "stat", false, "Only list the changed files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the run result in JSON format")
	return cmd
}

// NewApplyCommand creates the apply command
func NewApplyCommand(opts *globalOptions) *cobra.Command {
	o := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Update the project to match scaffold.yaml",
		Long: `Run every enabled module and write the changes to the project.

Modules removed from scaffold.yaml since the last apply have their changes
taken back out. Running apply twice changes nothing the second time.

Examples:
  scaffold apply
  scaffold apply --dry-run
  scaffold apply --wait 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(opts)
			if err != nil {
				return err
			}
			return applyProject(cmd.Context(), cmd, opts, root, o)
		},
	}

	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Show the changes without writing them")
	cmd.Flags().BoolVar(&o.stat, "stat", false, "Only list the changed files")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Output the run result in JSON format")
	cmd.Flags().DurationVar(&o.wait, "wait", defaultLockWait, "How long to wait for another run on the same project")
	return cmd
}

func projectRoot(opts *globalOptions) (string, error) {
	return config.FindRoot(opts.dir)
}

// applyProject loads the project at root and plans or applies it
func applyProject(ctx context.Context, cmd *cobra.Command, opts *globalOptions, root string, o applyOptions) error {
	p, err := loadProject(cmd, opts, root)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.openJournal(ctx); err != nil {
		p.logger.Sugar().Warnf("run history disabled: %v", err)
	}
	svc, err := p.service(app.Options{LockWait: o.wait})
	if err != nil {
		return err
	}

	var report *app.Report
	if o.dryRun {
		report, err = svc.Plan(ctx, app.Request{})
	} else {
		report, err = svc.Apply(ctx, app.Request{})
	}
	if err != nil {
		return err
	}

	if o.asJSON {
		return writeJSON(cmd.OutOrStdout(), report.Result)
	}
	printReport(cmd.OutOrStdout(), report, o, opts.noColor)
	return nil
}

func printReport(out io.Writer, report *app.Report, o applyOptions, noColor bool) {
	result := report.Result
	if len(result.Changes) == 0 {
		ui.WriteSuccess(out, "Nothing to do, the project is up to date", noColor)
		return
	}

	ui.Header(out, "Changes", noColor)
	for _, c := range result.Changes {
		fmt.Fprintf(out, "  [%s] %s\n", c.Module, c.Description)
	}
	fmt.Fprintln(out)

	ui.Header(out, "Files", noColor)
	for _, d := range report.Diffs {
		if o.stat {
			fmt.Fprintf(out, "  %s\n", d.Summary())
			continue
		}
		fmt.Fprint(out, d.String())
	}
	fmt.Fprintln(out)

	summary := fmt.Sprintf("%d %s in %d %s",
		len(result.Changes), pluralize(len(result.Changes), "change", "changes"),
		len(report.Diffs), pluralize(len(report.Diffs), "file", "files"))
	if o.dryRun {
		fmt.Fprintf(out, "Plan: %s. Run 'scaffold apply' to write them.\n", summary)
		return
	}
	ui.WriteSuccess(out, "Applied "+summary, noColor)
}

// NewStatusCommand creates the status command
func NewStatusCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare scaffold.yaml, the last apply and the files on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			svc, err := p.service(app.Options{})
			if err != nil {
				return err
			}
			status, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), status)
			}

			out := cmd.OutOrStdout()
			kv := ui.NewKeyValueTable(out, opts.noColor)
			kv.AddRow("enabled", joinOrDash(status.Enabled))
			kv.AddRow("applied", joinOrDash(status.Applied))
			kv.AddRow("pending", joinOrDash(status.Pending))
			kv.AddRow("removed", joinOrDash(status.Removed))
			kv.AddRow("changes", fmt.Sprint(status.Changes))
			lastRun := "never"
			if status.LastRun != nil {
				lastRun = fmt.Sprintf("%s (%s)", status.LastRun.Time.Local().Format(time.RFC1123), status.LastRun.ID)
			}
			kv.AddRow("last apply", lastRun)
			kv.Render()

			if len(status.Drift) > 0 {
				fmt.Fprintln(out)
				ui.Write(out, ui.Message{
					Level:   ui.LevelWarning,
					Problem: "Files changed since the last apply:",
					NoColor: opts.noColor,
				})
				for _, d := range status.Drift {
					fmt.Fprintf(out, "  %-8s %s\n", d.Kind, d.Path)
				}
			}

			fmt.Fprintln(out)
			if status.UpToDate {
				ui.WriteSuccess(out, "Up to date", opts.noColor)
			} else {
				fmt.Fprintln(out, "Run 'scaffold plan' to see the pending changes.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
