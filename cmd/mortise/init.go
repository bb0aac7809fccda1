package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mortise-dev/mortise/internal/domain/values"
	"github.com/mortise-dev/mortise/internal/templates"
)

// scaffoldFiles are the templates rendered into a new plugin directory,
// named after their output files.
var scaffoldFiles = []string{"plugin.json", "main.go", "README.md"}

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var (
		name    string
		version string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a new plugin project",
		Long: `Create a plugin project skeleton: a plugin.json manifest, an entry
source stub and a README. Name and version are prompted for when not given
as flags.`,
		Example: `  mortise init my-plugin
  mortise init --name @team/fetch --version 0.1.0 ./fetch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || version == "" {
				if err := promptPluginIdentity(&name, &version); err != nil {
					return err
				}
			}
			if _, err := values.NewPluginName(name); err != nil {
				return err
			}
			if _, err := semver.NewVersion(version); err != nil {
				return fmt.Errorf("invalid version %q: %w", version, err)
			}

			dir := name
			if len(args) == 1 {
				dir = args[0]
			}
			return scaffoldPlugin(dir, name, version, force)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Plugin name")
	cmd.Flags().StringVar(&version, "version", "", "Initial semantic version")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")

	return cmd
}

func promptPluginIdentity(name, version *string) error {
	if *version == "" {
		*version = "0.1.0"
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Plugin name").
			Value(name).
			Validate(func(s string) error {
				_, err := values.NewPluginName(s)
				return err
			}),
		huh.NewInput().
			Title("Initial version").
			Value(version).
			Validate(func(s string) error {
				_, err := semver.NewVersion(s)
				return err
			}),
	))
	return form.Run()
}

func scaffoldPlugin(dir, name, version string, force bool) error {
	tmpl, err := templates.PluginTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data := templates.PluginData{
		Name:      name,
		Version:   version,
		EntryFile: "main.wasm",
	}

	for _, file := range scaffoldFiles {
		target := filepath.Join(dir, file)
		if !force {
			if _, err := os.Stat(target); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", target)
			}
		}
		out, err := os.Create(target) //nolint:gosec // scaffold target chosen by the user
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		renderErr := templates.Render(out, tmpl, file, data)
		if cerr := out.Close(); renderErr == nil {
			renderErr = cerr
		}
		if renderErr != nil {
			return renderErr
		}
	}

	fmt.Printf("created plugin %s@%s in %s\n", name, version, dir)
	return nil
}
