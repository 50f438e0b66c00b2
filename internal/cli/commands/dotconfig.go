package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/dotconfig"
)

// NewConfigCommand creates the config command group for the generated
// project's .config files
func NewConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the per-stage configuration of the project",
		Long: `Inspect the merged configuration the project reads at runtime.

Layers, lowest priority first:
  .config/default.yaml
  .config/<stage>.yaml
  .config/local.yaml
  .config/<stage>.local.yaml
  APP_<KEY__PATH> environment variables`,
	}

	cmd.AddCommand(newConfigShowCommand(opts))
	cmd.AddCommand(newConfigGetCommand(opts))
	cmd.AddCommand(newConfigStagesCommand(opts))
	return cmd
}

func newConfigShowCommand(opts *globalOptions) *cobra.Command {
	var (
		stage   string
		sources bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration of a stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDotConfig(cmd, opts, stage)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if sources {
				for _, s := range cfg.Sources() {
					fmt.Fprintf(out, "# %s\n", s)
				}
			}
			data, err := yaml.Marshal(cfg.AllSettings())
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Stage to load (default: first stage in scaffold.yaml)")
	cmd.Flags().BoolVar(&sources, "sources", false, "List the layers that contributed")
	return cmd
}

func newConfigGetCommand(opts *globalOptions) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one value of the merged configuration",
		Long: `Print one value of the merged configuration.

Examples:
  scaffold config get app.port
  scaffold config get database --stage production`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDotConfig(cmd, opts, stage)
			if err != nil {
				return err
			}
			value, ok := cfg.Get(args[0])
			if !ok {
				return fmt.Errorf("%s is not set for stage %s", args[0], cfg.Stage())
			}

			switch value.(type) {
			case map[string]interface{}, []interface{}:
				data, err := yaml.Marshal(value)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Stage to load (default: first stage in scaffold.yaml)")
	return cmd
}

func newConfigStagesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stages with their own configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			stages, err := dotconfig.Stages(p.fs, p.config.DotConfigDir)
			if err != nil {
				return err
			}
			declared := make(map[string]bool)
			for _, s := range p.config.Stages {
				declared[s] = true
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			for _, s := range stages {
				if !declared[s] {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (not in scaffold.yaml)\n", s)
				}
			}
			return nil
		},
	}
}

// loadDotConfig merges the configuration of stage, which must be declared in
// scaffold.yaml
func loadDotConfig(cmd *cobra.Command, opts *globalOptions, stage string) (*dotconfig.Config, error) {
	p, err := openProject(cmd, opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if stage == "" && len(p.config.Stages) > 0 {
		stage = p.config.Stages[0]
	}
	if stage != "" && !contains(p.config.Stages, stage) {
		return nil, fmt.Errorf("unknown stage %s (stages: %s)", stage, joinOrDash(p.config.Stages))
	}
	return dotconfig.Load(p.fs, p.config.DotConfigDir, stage)
}

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}
