package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newUninstallCmd())
}

func newUninstallCmd() *cobra.Command {
	var (
		all bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall <name>... | --all",
		Short: "Remove installed plugins from the store",
		Long: `Remove installed plugins. Dependents of a removed plugin are unloaded
from the runtime but stay installed; only the named plugin's files are
deleted. Uninstalling a plugin that is not installed succeeds quietly.`,
		Example: `  mortise uninstall fetch
  mortise uninstall fetch left-pad
  mortise uninstall --all --yes`,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			if all {
				if len(args) > 0 {
					return fmt.Errorf("--all takes no plugin names")
				}
				if !yes {
					confirmed := false
					err := huh.NewConfirm().
						Title("Remove all installed plugins?").
						Value(&confirmed).
						Run()
					if err != nil {
						return err
					}
					if !confirmed {
						return nil
					}
				}
				if err := ctx.Container.Manager().UninstallAll(ctx.Context); err != nil {
					return err
				}
				fmt.Println("all plugins removed")
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("at least one plugin name (or --all) is required")
			}
			for _, name := range args {
				if err := ctx.Container.Manager().Uninstall(ctx.Context, name); err != nil {
					return err
				}
				fmt.Printf("removed %s\n", name)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every installed plugin")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
