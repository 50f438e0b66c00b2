package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/ui"
)

// NewInitCommand creates the init command
func NewInitCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Create scaffold.yaml in the project directory",
		Long: `Create a starter scaffold.yaml in the project directory.

The project name defaults to the directory name.

Examples:
  scaffold init
  scaffold init shop-api
  scaffold init -C ./services/shop-api`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(opts.dir)
			if err != nil {
				return err
			}
			name := filepath.Base(root)
			if len(args) == 1 {
				name = args[0]
			}
			if err := validateProjectName(name); err != nil {
				return err
			}
			if err := os.MkdirAll(root, 0755); err != nil {
				return fmt.Errorf("failed to create project directory: %w", err)
			}

			if err := config.Init(afero.NewBasePathFs(afero.NewOsFs(), root), name); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, fmt.Sprintf("Created %s for %s", config.FileName, name), opts.noColor)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  scaffold list               see the available modules")
			fmt.Fprintln(out, "  scaffold enable <module>    turn a module on")
			fmt.Fprintln(out, "  scaffold apply              write the changes")
			return nil
		},
	}
}
