package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	dir      string
	logLevel string
	noColor  bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Add and remove feature modules in a NestJS project",
		Long: color.CyanString(`scaffold - module manager for the NestJS boilerplate

Enable a module in scaffold.yaml and scaffold wires it into the project:
dependencies in package.json, settings in .config, variables in .env,
services in docker-compose.yml and the module itself in src/app.module.ts.
Disable it and the same changes are taken back out.

Every run is idempotent: applying twice changes nothing the second time.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "C", ".", "Project directory")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides log.level in scaffold.yaml)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		NewVersionCommand(),
		NewInitCommand(opts),
		NewListCommand(opts),
		NewInfoCommand(opts),
		NewEnableCommand(opts),
		NewDisableCommand(opts),
		NewPlanCommand(opts),
		NewApplyCommand(opts),
		NewStatusCommand(opts),
		NewConfigCommand(opts),
		NewHistoryCommand(opts),
		NewWatchCommand(opts),
		NewServeCommand(opts),
		NewCompletionCommand(),
	)

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the scaffold version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			for _, row := range [][2]string{
				{"scaffold version", Version},
				{"Git commit", GitCommit},
				{"Build date", BuildDate},
				{"Go version", goVer},
			} {
				title.Fprintf(out, "%s: ", row[0])
				fmt.Fprintln(out, row[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		writeError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}
