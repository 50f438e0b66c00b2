package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/ui"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules/builtin"
)

// Module states shown by list
const (
	moduleEnabled  = "enabled"
	moduleRequired = "required"
	moduleImplicit = "implicit"
	moduleOff      = "-"
)

// moduleEntry is a module as printed by list --json
type moduleEntry struct {
	modules.Info
	Status string `json:"status"`
}

// NewListCommand creates the list command
func NewListCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the available modules",
		Long: `List every module with its status in the current project.

Status is one of:
  enabled   listed in scaffold.yaml
  required  always on
  implicit  on because an enabled module depends on it`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := builtin.Registry()

			// Outside a project every module is listed as off.
			enabled := map[string]map[string]interface{}{}
			if p, err := openProject(cmd, opts); err == nil {
				enabled = p.config.Modules
				p.Close()
			}
			statuses := moduleStatuses(registry, enabled)

			entries := make([]moduleEntry, 0, len(statuses))
			for _, m := range registry.List() {
				entries = append(entries, moduleEntry{Info: modules.Describe(m), Status: statuses[m.Name()]})
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			table := ui.NewTable(cmd.OutOrStdout(), opts.noColor, "NAME", "STATUS", "DEPENDS ON", "DESCRIPTION")
			for _, e := range entries {
				table.AddRow(e.Name, e.Status, joinOrDash(e.DependsOn), e.Description)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// moduleStatuses computes the list status of every registered module
func moduleStatuses(registry *modules.Registry, enabled map[string]map[string]interface{}) map[string]string {
	statuses := make(map[string]string)
	for _, m := range registry.List() {
		statuses[m.Name()] = moduleOff
	}

	var roots []string
	for _, m := range registry.List() {
		if _, ok := enabled[m.Name()]; ok {
			statuses[m.Name()] = moduleEnabled
			roots = append(roots, m.Name())
		} else if modules.IsRequired(m) {
			statuses[m.Name()] = moduleRequired
			roots = append(roots, m.Name())
		}
	}
	for _, dep := range dependencies(registry, roots) {
		if statuses[dep] == moduleOff {
			statuses[dep] = moduleImplicit
		}
	}
	return statuses
}

// dependencies returns the transitive dependencies of names, excluding names
func dependencies(registry *modules.Registry, names []string) []string {
	seen := make(map[string]bool)
	for _, n := range names {
		seen[n] = true
	}

	var deps []string
	queue := append([]string(nil), names...)
	for len(queue) > 0 {
		m, err := registry.Get(queue[0])
		queue = queue[1:]
		if err != nil {
			continue
		}
		for _, dep := range m.DependsOn() {
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
				queue = append(queue, dep)
			}
		}
	}
	sort.Strings(deps)
	return deps
}

// NewInfoCommand creates the info command
func NewInfoCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <module>",
		Short: "Show a module and its configuration fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := builtin.Registry().Get(args[0])
			if err != nil {
				return err
			}
			info := modules.Describe(m)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			out := cmd.OutOrStdout()
			ui.Header(out, info.Name, opts.noColor)
			kv := ui.NewKeyValueTable(out, opts.noColor)
			kv.AddRow("description", info.Description)
			kv.AddRow("depends on", joinOrDash(info.DependsOn))
			kv.AddRow("required", fmt.Sprint(info.Required))
			kv.Render()

			if len(info.Fields) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			table := ui.NewTable(out, opts.noColor, "FIELD", "TYPE", "DEFAULT", "DESCRIPTION")
			for _, f := range info.Fields {
				description := f.Description
				if len(f.Options) > 0 {
					description += fmt.Sprintf(" (one of: %s)", strings.Join(f.Options, ", "))
				}
				def := formatValue(f.Default)
				if f.Required && f.Default == nil {
					def = "required"
				}
				table.AddRow(f.Name, string(f.Type), def, description)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// NewEnableCommand creates the enable command
func NewEnableCommand(opts *globalOptions) *cobra.Command {
	var (
		sets        []string
		interactive bool
		apply       bool
	)

	cmd := &cobra.Command{
		Use:   "enable <module>",
		Short: "Enable a module in scaffold.yaml",
		Long: `Enable a module in scaffold.yaml and set its configuration.

Values are checked against the module fields before the file is written.
Dependencies of the module are enabled implicitly on apply.

Examples:
  scaffold enable redis
  scaffold enable email --set provider=smtp --set from=noreply@example.com
  scaffold enable auth -i
  scaffold enable queue --apply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			name := args[0]
			m, err := p.registry.Get(name)
			if err != nil {
				return err
			}

			values, err := parseSets(m.Schema(), sets)
			if err != nil {
				return err
			}
			current := merge(p.config.Modules[name], values)
			if interactive {
				answers, err := promptFields(m.Schema(), current)
				if err != nil {
					return err
				}
				values = merge(values, answers)
				current = merge(current, answers)
			}
			if _, err := m.Schema().Resolve(name, current); err != nil {
				return err
			}

			if err := config.EnableModule(p.fs, name, values); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, fmt.Sprintf("Enabled %s in %s", name, config.FileName), opts.noColor)
			statuses := moduleStatuses(p.registry, p.config.Modules)
			for _, dep := range dependencies(p.registry, []string{name}) {
				if statuses[dep] == moduleOff {
					fmt.Fprintf(out, "  %s will be enabled as a dependency\n", dep)
				}
			}
			if apply {
				return applyProject(cmd.Context(), cmd, opts, p.root, applyOptions{wait: defaultLockWait})
			}
			fmt.Fprintln(out, "\nRun 'scaffold apply' to update the project.")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a field (key=value, repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for every field")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the project after enabling")
	return cmd
}

// NewDisableCommand creates the disable command
func NewDisableCommand(opts *globalOptions) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "disable <module>",
		Short: "Disable a module in scaffold.yaml",
		Long: `Remove a module from scaffold.yaml.

The next apply takes the module's changes back out of the project. Files
created by the module are only deleted while they are unmodified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			name := args[0]
			m, err := p.registry.Get(name)
			if err != nil {
				return err
			}
			if modules.IsRequired(m) {
				return fmt.Errorf("module %s is required and cannot be disabled", name)
			}
			if _, ok := p.config.Modules[name]; !ok {
				return fmt.Errorf("module %s is not enabled in %s", name, config.FileName)
			}
			if dependents := dependents(p.registry, p.config.ModuleNames(), name); len(dependents) > 0 {
				return fmt.Errorf("module %s is needed by %s; disable %s first",
					name, strings.Join(dependents, ", "), pluralize(len(dependents), "it", "them"))
			}

			if err := config.DisableModule(p.fs, name); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Disabled %s in %s", name, config.FileName), opts.noColor)
			if apply {
				return applyProject(cmd.Context(), cmd, opts, p.root, applyOptions{wait: defaultLockWait})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'scaffold apply' to update the project.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the project after disabling")
	return cmd
}

// dependents lists the enabled modules that need name, directly or not
func dependents(registry *modules.Registry, enabled []string, name string) []string {
	var out []string
	for _, other := range enabled {
		if other == name {
			continue
		}
		for _, dep := range dependencies(registry, []string{other}) {
			if dep == name {
				out = append(out, other)
				break
			}
		}
	}
	return out
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// formatValue prints a field value the way it is written in YAML
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	return fmt.Sprint(v)
}
